package content

import (
	"reflect"
	"testing"

	"github.com/dtnitsch/surfcore/models"
)

func TestWordFrequency(t *testing.T) {
	text := "The river crossing was slow. The river was high, the crossing flooded."
	got := WordFrequency(text)

	want := map[string]int{
		"river":    2,
		"crossing": 2,
		"slow":     1,
		"high":     1,
		"flooded":  1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WordFrequency() = %v, want %v", got, want)
	}
}

func TestWordFrequency_StripsPunctuation(t *testing.T) {
	got := WordFrequency(`"Gauges," (reading: 4.2) measured!`)
	if got["gauges"] != 1 {
		t.Errorf("quoted word count = %d, want 1", got["gauges"])
	}
	if got["measured"] != 1 {
		t.Errorf("exclaimed word count = %d, want 1", got["measured"])
	}
}

func TestTopKeywords_OrderAndTies(t *testing.T) {
	text := "delta delta delta bravo bravo alpha charlie"
	got := TopKeywords(text, 3)

	want := []models.KeywordCount{
		{Word: "delta", Count: 3},
		{Word: "bravo", Count: 2},
		{Word: "alpha", Count: 1}, // ties break alphabetically
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopKeywords() = %v, want %v", got, want)
	}
}

func TestIsStopword(t *testing.T) {
	for _, word := range []string{"the", "The", "and", "click", "website"} {
		if !IsStopword(word) {
			t.Errorf("IsStopword(%q) = false, want true", word)
		}
	}
	for _, word := range []string{"river", "gauge", "kettle"} {
		if IsStopword(word) {
			t.Errorf("IsStopword(%q) = true, want false", word)
		}
	}
}

func TestWordCounts(t *testing.T) {
	text := "alpha beta alpha Gamma gamma"
	if got := WordCount(text); got != 5 {
		t.Errorf("WordCount() = %d, want 5", got)
	}
	if got := UniqueWordCount(text); got != 3 {
		t.Errorf("UniqueWordCount() = %d, want 3", got)
	}
	if got := WordCount(""); got != 0 {
		t.Errorf("WordCount(\"\") = %d, want 0", got)
	}
}
