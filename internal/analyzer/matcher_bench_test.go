package analyzer

import (
	"strings"
	"testing"
)

// benchmarkContent generates a realistic article body for benchmarking.
func benchmarkContent(size int) string {
	sb := strings.Builder{}
	sb.Grow(size)

	paragraphs := []string{
		"HVAC maintenance is critical for industrial facilities. Regular preventive maintenance helps prevent corrosion protection issues.",
		"Heat exchanger systems require careful attention to prevent failures. Proper maintenance extends equipment life significantly.",
		"Commercial HVAC repair services offer comprehensive solutions. Emergency repairs are available 24/7 for critical systems.",
		"Corrosion protection is essential in marine environments. Specialized coatings provide long-lasting defense against salt water damage.",
		"Industrial heat exchangers benefit from quarterly inspections. Early detection of issues prevents costly downtime.",
	}

	for sb.Len() < size {
		for _, p := range paragraphs {
			sb.WriteString(p)
			sb.WriteString(". ")
		}
	}
	return sb.String()
}

func BenchmarkFindTermMatches_SmallContent(b *testing.B) {
	content := benchmarkContent(1024)
	terms := []string{"HVAC", "corrosion", "heat exchanger", "maintenance"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		FindTermMatches(content, terms)
	}
}

func BenchmarkFindTermMatches_LargeContent(b *testing.B) {
	content := benchmarkContent(100 * 1024)
	terms := []string{"HVAC", "corrosion", "heat exchanger", "maintenance", "repair", "preventive"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		FindTermMatches(content, terms)
	}
}

func BenchmarkMeasureCoverage(b *testing.B) {
	content := benchmarkContent(50 * 1024)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		MeasureCoverage(content, "industrial heat exchanger corrosion protection")
	}
}

func BenchmarkSplitIntoSentences(b *testing.B) {
	content := benchmarkContent(50 * 1024)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		splitIntoSentences(content)
	}
}
