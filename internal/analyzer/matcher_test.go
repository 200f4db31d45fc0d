package analyzer

import (
	"reflect"
	"testing"
)

func TestFindTermMatchesBasic(t *testing.T) {
	content := "HVAC maintenance is critical. Corrosion protection is important. HVAC systems need repair."
	terms := []string{"HVAC", "corrosion", "absent"}

	results := FindTermMatches(content, terms)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Term != "HVAC" || results[0].Count != 2 {
		t.Errorf("HVAC: expected count 2, got %+v", results[0])
	}
	want := []string{"HVAC maintenance is critical.", "HVAC systems need repair."}
	if !reflect.DeepEqual(results[0].Sentences, want) {
		t.Errorf("HVAC: expected matching sentences %q, got %q", want, results[0].Sentences)
	}
	if results[1].Term != "corrosion" || results[1].Count != 1 {
		t.Errorf("corrosion: expected count 1, got %+v", results[1])
	}
	if !reflect.DeepEqual(results[1].Sentences, []string{"Corrosion protection is important."}) {
		t.Errorf("corrosion: unexpected sentences %q", results[1].Sentences)
	}
}

func TestSplitIntoSentencesBasic(t *testing.T) {
	sentences := splitIntoSentences("# Title\nFirst sentence. Second one!\n\nThird?")
	want := []string{"# Title", "First sentence.", "Second one!", "Third?"}
	if !reflect.DeepEqual(sentences, want) {
		t.Errorf("got %q want %q", sentences, want)
	}
}

func TestTopicTerms(t *testing.T) {
	got := TopicTerms("  How to   compost at home: the compost guide ")
	want := []string{"how to compost at home: the compost guide", "compost", "home", "guide"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q want %q", got, want)
	}
	if TopicTerms("   ") != nil {
		t.Errorf("expected no terms for blank topic")
	}
}

func TestMeasureCoverage(t *testing.T) {
	article := "Home composting is easy. Keep your compost moist."
	c := MeasureCoverage(article, "home compost bins")

	if !reflect.DeepEqual(c.Missing, []string{"home compost bins", "bins"}) {
		t.Errorf("unexpected missing terms %q", c.Missing)
	}
	if len(c.Matches) != 2 || c.Ratio != 0.5 {
		t.Errorf("expected 2 of 4 terms covered, got %+v", c)
	}
}
