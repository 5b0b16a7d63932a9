package utils

import (
	"sort"
	"strings"
)

// genreAliases maps common spellings to a canonical genre label
var genreAliases = map[string]string{
	"sci-fi":          "Sci-Fi",
	"scifi":           "Sci-Fi",
	"science fiction": "Sci-Fi",
	"rom-com":         "Romantic Comedy",
	"romcom":          "Romantic Comedy",
	"non-fiction":     "Nonfiction",
	"nonfiction":      "Nonfiction",
	"ya":              "Young Adult",
	"young adult":     "Young Adult",
	"doc":             "Documentary",
	"documentary":     "Documentary",
}

// NormalizeGenre folds a free-form genre label to its canonical form.
// Unknown labels are title-cased.
func NormalizeGenre(genre string) string {
	trimmed := strings.TrimSpace(genre)
	if trimmed == "" {
		return ""
	}

	if canonical, ok := genreAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}

	words := strings.Fields(strings.ToLower(trimmed))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeGenres normalizes a list of genre labels, dropping empties
// and duplicates while preserving order
func NormalizeGenres(genres []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, genre := range genres {
		normalized := NormalizeGenre(genre)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}
	return result
}

// RankGenres returns the distinct genres sorted by how often they occur,
// most frequent first, limited to max entries. Used to condition
// suggestion prompts on what the owner actually tracks.
func RankGenres(genreLists [][]string, max int) []string {
	counts := make(map[string]int)
	var order []string
	for _, genres := range genreLists {
		for _, genre := range genres {
			normalized := NormalizeGenre(genre)
			if normalized == "" {
				continue
			}
			if counts[normalized] == 0 {
				order = append(order, normalized)
			}
			counts[normalized]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if max > 0 && len(order) > max {
		order = order[:max]
	}
	return order
}
