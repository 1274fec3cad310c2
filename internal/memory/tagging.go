package memory

import (
	"regexp"
	"sort"
	"strings"
)

const maxAutoTags = 5

// stopwords excluded from auto-tagging. Clara's users write in French and
// English, so both sets are covered.
var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(
		"le la les un une des du de et ou mais dans pour par sur avec sans " +
			"sous vers chez je tu il elle nous vous ils elles mon ma mes ton " +
			"ta tes son sa ses ce cet cette ces qui que quoi dont où à au aux " +
			"en y a ai as est sont " +
			"the an and or but in on at to for is are was were be been being " +
			"have has had this that with from not you your my our their it its") {
		stopwords[w] = true
	}
}

var wordPattern = regexp.MustCompile(`\pL+`)

// GenerateTags derives up to five tags from content: lower-cased words of at
// least three letters, stopwords removed, ranked by frequency. Content made
// of only stopwords or short words yields no tags. It is the default Tagger.
func GenerateTags(content string) []string {
	if content == "" {
		return []string{}
	}

	words := wordPattern.FindAllString(strings.ToLower(content), -1)

	var meaningful []string
	counts := make(map[string]int)
	for _, w := range words {
		if stopwords[w] || len([]rune(w)) < 3 {
			continue
		}
		meaningful = append(meaningful, w)
		counts[w]++
	}
	if len(meaningful) == 0 {
		return []string{}
	}

	unique := make([]string, 0, len(counts))
	for w := range counts {
		unique = append(unique, w)
	}
	// Frequency-ranked; first appearance breaks ties so output is stable.
	first := make(map[string]int, len(counts))
	for i, w := range meaningful {
		if _, seen := first[w]; !seen {
			first[w] = i
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return first[unique[i]] < first[unique[j]]
	})

	if len(unique) > maxAutoTags {
		unique = unique[:maxAutoTags]
	}
	return unique
}
