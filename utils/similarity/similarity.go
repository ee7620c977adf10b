package similarity

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

// Similarity scores how close two content titles are, from 0.0 (unrelated)
// to 1.0 (identical). Titles are folded to lowercase ASCII first so a
// romanized query still lines up with a native-script title, and season or
// subtitle suffixes ("The Glory" vs "The Glory Part 2") score high through
// prefix containment.
func Similarity(a, b string) float64 {
	a = normalizeTitle(a)
	b = normalizeTitle(b)

	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	if score := containmentScore(a, b); score > 0 {
		return score
	}

	distance := levenshtein(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// containmentScore handles the title-plus-suffix pattern common in drama
// catalogs: one title extending the other with a season marker or subtitle.
// The shared part must start at a word boundary and cover most of the longer
// title.
func containmentScore(a, b string) float64 {
	longer, shorter := a, b
	if len(a) < len(b) {
		longer, shorter = b, a
	}

	var boundary bool
	switch {
	case strings.HasPrefix(longer, shorter):
		rest := longer[len(shorter):]
		boundary = rest == "" || rest[0] == ' '
	case strings.HasSuffix(longer, shorter):
		cut := len(longer) - len(shorter)
		boundary = cut == 0 || longer[cut-1] == ' '
	}
	if !boundary {
		return 0
	}

	// Season markers roughly double a short title, so the shared part only
	// needs to cover half the longer one.
	ratio := float64(len(shorter)) / float64(len(longer))
	if ratio < 0.5 {
		return 0
	}
	return 0.85 + ratio*0.15
}

// normalizeTitle folds a title to comparable form: ASCII transliteration,
// lowercase, punctuation stripped, whitespace collapsed. "오징어 게임" and
// "Ojingeo Geim" normalize to the same string.
func normalizeTitle(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	s = unidecode.Unidecode(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == ':':
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
