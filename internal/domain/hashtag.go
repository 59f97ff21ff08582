package domain

import (
	"regexp"
	"sort"
	"strings"
)

// HashtagCount is one hashtag with its number of occurrences across the trip.
type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// hashtagRE matches #tags of at least two letters/digits, including umlauts.
var hashtagRE = regexp.MustCompile(`#([\p{L}\p{N}]{2,})`)

// htmlTagRE strips markup so tags inside rich text are matched on their
// visible text only.
var htmlTagRE = regexp.MustCompile(`<[^>]*>`)

// Hashtags scans the titles and content of all content entries and returns
// the tags ordered by count descending, then alphabetically. Tags are
// compared case-insensitively; the first-seen casing wins.
func (t *Trip) Hashtags() []HashtagCount {
	counts := map[string]int{}
	casing := map[string]string{}

	scan := func(text string) {
		text = htmlTagRE.ReplaceAllString(text, " ")
		for _, m := range hashtagRE.FindAllStringSubmatch(text, -1) {
			key := strings.ToLower(m[1])
			if _, seen := casing[key]; !seen {
				casing[key] = m[1]
			}
			counts[key]++
		}
	}

	for _, day := range t.Days {
		for _, e := range day.Entries {
			switch v := e.(type) {
			case *InfoEntry:
				scan(v.Title)
				scan(v.Content)
			case *NoteEntry:
				scan(v.Title)
				scan(v.Content)
			case *DaySeparatorEntry, *SeparatorEntry:
			}
		}
	}

	out := make([]HashtagCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, HashtagCount{Tag: casing[key], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
