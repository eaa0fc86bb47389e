package match

import (
	"sort"
	"strings"

	"graph-serializer/naming"
)

// MinScore is the similarity below which Suggest stays silent.
const MinScore = 0.5

// Normalize lowercases an identifier and drops word separators, so
// "unit_price", "unitPrice" and "UnitPrice" compare equal.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(naming.Words(s), ""))
}

// Candidate is a known name scored against an unknown one.
type Candidate struct {
	Name  string
	Score float64
}

// CandidateList is sorted by descending score.
type CandidateList []Candidate

// Best returns the highest ranked candidate.
func (l CandidateList) Best() (Candidate, bool) {
	if len(l) == 0 {
		return Candidate{}, false
	}

	return l[0], true
}

// Rank scores every known name against name. Ties keep the order of known.
func Rank(name string, known []string) CandidateList {
	norm := Normalize(name)

	list := make(CandidateList, 0, len(known))
	for _, k := range known {
		list = append(list, Candidate{Name: k, Score: Similarity(norm, Normalize(k))})
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })

	return list
}

// Suggest returns the closest known name when it is similar enough.
func Suggest(name string, known []string) (string, bool) {
	best, ok := Rank(name, known).Best()
	if !ok || best.Score < MinScore {
		return "", false
	}

	return best.Name, true
}
