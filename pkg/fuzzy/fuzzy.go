package fuzzy

import (
	"strings"
	"unicode"
)

// Field is one searchable piece of a document
type Field struct {
	Name   string
	Text   string
	Weight float64
	// Snippet limits matching to the first 500 characters
	Snippet bool
}

// LevenshteinDistance calculates the edit distance between two strings
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// Threshold is the typo tolerance for a query of this length
func Threshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	}
	return 2
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" || text == "" {
		return false
	}
	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) || LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}

	// Whole-text distance only makes sense for short texts
	if len(text) < 50 {
		maxDistance := threshold + len(query)/5
		if LevenshteinDistance(query, text) <= maxDistance {
			return true
		}
	}
	return false
}

// Score rates how well query matches the fields and names the fields that matched.
// A zero score means no match.
func Score(query string, fields []Field) (float64, []string) {
	query = normalizeString(query)
	if query == "" {
		return 0, nil
	}
	threshold := Threshold(query)

	total := 0.0
	var matched []string
	for _, f := range fields {
		text := f.Text
		if f.Snippet && len(text) > 500 {
			text = text[:500]
		}
		s := fieldScore(query, normalizeString(text), threshold)
		if s <= 0 {
			continue
		}
		weight := f.Weight
		if weight == 0 {
			weight = 1
		}
		total += s * weight
		matched = append(matched, f.Name)
	}
	return total, matched
}

func fieldScore(query, text string, threshold int) float64 {
	if text == "" {
		return 0
	}
	if strings.Contains(text, query) {
		score := 100.0
		if containsWord(text, query) {
			score += 50.0
		}
		return score
	}

	score := 0.0
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			score += 40.0
			continue
		}
		if dist := LevenshteinDistance(query, word); dist <= threshold {
			score += 50.0 - float64(dist)*15
		}
	}
	if score == 0 && len(text) < 50 && LevenshteinDistance(query, text) <= threshold+len(query)/5 {
		score = 20.0
	}
	return score
}

// normalizeString lowercases, strips accents and collapses whitespace
func normalizeString(s string) string {
	s = removeAccents(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}

// removeAccents removes diacritical marks so "Nguyễn" matches "nguyen"
func removeAccents(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch r {
		case 'á', 'à', 'ả', 'ã', 'ạ', 'ă', 'ắ', 'ằ', 'ẳ', 'ẵ', 'ặ', 'â', 'ấ', 'ầ', 'ẩ', 'ẫ', 'ậ':
			result.WriteRune('a')
		case 'é', 'è', 'ẻ', 'ẽ', 'ẹ', 'ê', 'ế', 'ề', 'ể', 'ễ', 'ệ':
			result.WriteRune('e')
		case 'í', 'ì', 'ỉ', 'ĩ', 'ị':
			result.WriteRune('i')
		case 'ó', 'ò', 'ỏ', 'õ', 'ọ', 'ô', 'ố', 'ồ', 'ổ', 'ỗ', 'ộ', 'ơ', 'ớ', 'ờ', 'ở', 'ỡ', 'ợ':
			result.WriteRune('o')
		case 'ú', 'ù', 'ủ', 'ũ', 'ụ', 'ư', 'ứ', 'ừ', 'ử', 'ữ', 'ự':
			result.WriteRune('u')
		case 'ý', 'ỳ', 'ỷ', 'ỹ', 'ỵ':
			result.WriteRune('y')
		case 'đ':
			result.WriteRune('d')
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
