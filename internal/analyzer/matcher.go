package analyzer

import (
	"strings"
	"unicode"
)

// TermMatch represents occurrences of a term within a text.
type TermMatch struct {
	Term      string   `json:"term"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// Coverage describes how well an article covers the terms of its topic.
type Coverage struct {
	Topic   string      `json:"topic"`
	Matches []TermMatch `json:"matches"`
	Missing []string    `json:"missing,omitempty"`
	// Ratio is the share of topic terms found at least once (0..1).
	Ratio float64 `json:"ratio"`
}

// FindTermMatches scans content for each term (case-insensitive) and returns
// one TermMatch per term that occurs, in term order, with the sentences that
// contain it.
func FindTermMatches(content string, terms []string) []TermMatch {
	if len(content) == 0 || len(terms) == 0 {
		return nil
	}

	results := make([]TermMatch, 0, len(terms))

	// Lowercase the content and sentences once, not per term.
	lowerContent := strings.ToLower(content)
	sentences := splitIntoSentences(content)
	lowerSentences := make([]string, len(sentences))
	for i, s := range sentences {
		lowerSentences[i] = strings.ToLower(s)
	}

	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		if lowerTerm == "" {
			continue
		}
		count := strings.Count(lowerContent, lowerTerm)
		if count == 0 {
			continue
		}
		var matched []string
		for i, ls := range lowerSentences {
			if strings.Contains(ls, lowerTerm) {
				matched = append(matched, sentences[i])
			}
		}
		results = append(results, TermMatch{
			Term:      term,
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

// TopicTerms derives the terms to look for from a topic: the whole phrase
// plus each distinct significant word, lowercased.
func TopicTerms(topic string) []string {
	phrase := strings.ToLower(strings.Join(strings.Fields(topic), " "))
	if phrase == "" {
		return nil
	}

	terms := []string{phrase}
	seen := map[string]bool{phrase: true}
	for _, w := range strings.FieldsFunc(phrase, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	}) {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// MeasureCoverage counts the topic's terms in article.
func MeasureCoverage(article, topic string) Coverage {
	c := Coverage{Topic: topic}
	terms := TopicTerms(topic)
	if len(terms) == 0 {
		return c
	}

	c.Matches = FindTermMatches(article, terms)
	found := make(map[string]bool, len(c.Matches))
	for _, m := range c.Matches {
		found[m.Term] = true
	}
	for _, t := range terms {
		if !found[t] {
			c.Missing = append(c.Missing, t)
		}
	}
	c.Ratio = float64(len(c.Matches)) / float64(len(terms))
	return c
}

var stopwords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "from": true,
	"how": true, "what": true, "why": true, "are": true, "was": true,
	"into": true, "about": true, "your": true, "you": true, "its": true,
	"that": true, "this": true, "best": true, "vs": true, "of": true,
}

// splitIntoSentences naively splits text into sentences using '.', '!' or '?' as
// delimiters while preserving the delimiter at the end of each sentence.
func splitIntoSentences(text string) []string {
	if len(text) == 0 {
		return nil
	}

	// Estimate sentence count: roughly 1 sentence per 50 chars average
	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}

	sentences := make([]string, 0, estimated)
	start := 0

	for i, r := range text {
		if i < start {
			continue
		}
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			end := i + 1
			for end < len(text) && unicode.IsSpace(rune(text[end])) {
				end++
			}
			if s := strings.TrimSpace(text[start:end]); s != "" {
				sentences = append(sentences, s)
			}
			start = end
		}
	}

	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
