package similarity

import "testing"

func TestIdenticalTitles(t *testing.T) {
	if got := Similarity("Squid Game", "Squid Game"); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestPunctuationAndCaseIgnored(t *testing.T) {
	if got := Similarity("It's Okay to Not Be Okay", "its okay to not be okay"); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
	if got := Similarity("Me & You", "Me and You"); got != 1.0 {
		t.Errorf("ampersand equivalence: got %f", got)
	}
}

func TestAccentsFoldToASCII(t *testing.T) {
	if got := Similarity("Café Minamdang", "Cafe Minamdang"); got != 1.0 {
		t.Errorf("expected accent folding to match exactly, got %f", got)
	}
}

func TestSeasonSuffixScoresHigh(t *testing.T) {
	got := Similarity("The Glory", "The Glory Part 2")
	if got < 0.9 {
		t.Errorf("expected suffix containment to score high, got %f", got)
	}
}

func TestShortSharedPrefixDoesNotScoreHigh(t *testing.T) {
	// "My" is a tiny fraction of the longer title; containment must not kick in.
	got := Similarity("My", "My Liberation Notes")
	if got > 0.5 {
		t.Errorf("expected low score, got %f", got)
	}
}

func TestUnrelatedTitlesScoreLow(t *testing.T) {
	got := Similarity("Crash Landing on You", "Alchemy of Souls")
	if got > 0.5 {
		t.Errorf("expected low score, got %f", got)
	}
}

func TestEmptyInput(t *testing.T) {
	if got := Similarity("", "Goblin"); got != 0.0 {
		t.Errorf("expected 0.0, got %f", got)
	}
}
