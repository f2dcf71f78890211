package content

import (
	"math"
	"strings"
	"testing"
)

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "empty",
			text: "",
			want: 0,
		},
		{
			name: "single short label",
			text: "Menu",
			want: 0,
		},
		{
			name: "two short sentences",
			text: "It rained. The gauge rose.",
			// sentence structure only: under 100 chars, under 10 words,
			// 5 unique words is not above the 5 threshold
			want: 0.3,
		},
		{
			name: "dense prose caps at one",
			text: strings.Repeat("The survey recorded every crossing with depth, grade, and bank condition noted carefully. Field teams measured approach angles, water clarity, sediment load, and seasonal variation across forty sites. ", 5),
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := qualityScore(tt.text, WordCount(tt.text), UniqueWordCount(tt.text))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("qualityScore(%q...) = %v, want %v", truncate(tt.text, 30), got, tt.want)
			}
		})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func TestQualityScore_MonotonicWithLength(t *testing.T) {
	short := "A short note. It says little."
	long := strings.Repeat("A much longer passage with real sentences and varied words appears here. ", 8)

	shortScore := qualityScore(short, WordCount(short), UniqueWordCount(short))
	longScore := qualityScore(long, WordCount(long), UniqueWordCount(long))
	if longScore <= shortScore {
		t.Errorf("quality did not grow with substance: short=%v long=%v", shortScore, longScore)
	}
}

func TestHasSentenceStructure(t *testing.T) {
	if hasSentenceStructure("nav footer sidebar about contact") {
		t.Error("label soup scored as prose")
	}
	if !hasSentenceStructure("It rained. The river rose.") {
		t.Error("two sentences not recognized as prose")
	}
}
