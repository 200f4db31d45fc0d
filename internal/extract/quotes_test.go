package extract

import (
	"reflect"
	"testing"
)

func TestQuotes(t *testing.T) {
	text := "a [[QUOTE]] one [[/QUOTE]] b [[QUOTE]]two\nlines[[/QUOTE]] c [[QUOTE]]  [[/QUOTE]] [[QUOTE]]unterminated"
	got := Quotes(text)
	want := []string{"one", "two\nlines"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestVerifyQuotes(t *testing.T) {
	source := "<p>The  committee\n\tvoted 7–2 to approve the plan.</p> It said “costs will fall”."
	text := "Summary. [[QUOTE]]The committee voted 7–2 to approve the plan.[[/QUOTE]] " +
		"[[QUOTE]]“costs will fall”[[/QUOTE]] [[QUOTE]]The vote was unanimous.[[/QUOTE]]"

	cleaned, unverified := VerifyQuotes(text, source)

	want := "Summary. [[QUOTE]]The committee voted 7–2 to approve the plan.[[/QUOTE]] " +
		"[[QUOTE]]“costs will fall”[[/QUOTE]] The vote was unanimous."
	if cleaned != want {
		t.Errorf("unexpected cleaned text:\n got: %q\nwant: %q", cleaned, want)
	}
	if !reflect.DeepEqual(unverified, []string{"The vote was unanimous."}) {
		t.Errorf("unexpected unverified quotes: %q", unverified)
	}
}

func TestVerifyQuotes_CaseSensitive(t *testing.T) {
	_, unverified := VerifyQuotes("[[QUOTE]]GDP rose[[/QUOTE]]", "gdp rose sharply")
	if len(unverified) != 1 {
		t.Errorf("expected case-changed quote to be rejected, got %q", unverified)
	}
}

func TestStripMarkers(t *testing.T) {
	if got := StripMarkers("x [[QUOTE]]y[[/QUOTE]] z"); got != "x y z" {
		t.Errorf("got %q", got)
	}
}

func TestRenderQuotes(t *testing.T) {
	got := RenderQuotes(`He said [[QUOTE]] ship it [[/QUOTE]], then [[QUOTE]]"wait"[[/QUOTE]] [[/QUOTE]]`)
	want := `He said "ship it", then "wait" `
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
