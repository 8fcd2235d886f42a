package hospitals

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const maxCandidates = 3

var facilitySuffix = regexp.MustCompile(`(病院|医院|クリニック|診療所|センター|医療センター|総合病院)$`)
var matchSpaces = regexp.MustCompile(`[\s　]+`)

// NormalizeForMatch prepares a facility name for comparison: spaces
// (including ideographic U+3000) removed, trailing facility suffix stripped,
// lowercased.
func NormalizeForMatch(name string) string {
	if name == "" {
		return ""
	}
	s := matchSpaces.ReplaceAllString(name, "")
	s = facilitySuffix.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// scoreMatch compares two normalized names. 100 exact, 70 when the extracted
// name contains the master name (short form in the master), 50 when the
// master name contains the extracted one, 0 otherwise.
func scoreMatch(normTarget, normName string) int {
	if normTarget == "" || normName == "" {
		return 0
	}
	switch {
	case normTarget == normName:
		return 100
	case strings.Contains(normTarget, normName):
		return 70
	case strings.Contains(normName, normTarget):
		return 50
	}
	return 0
}

// FindCandidates scores the master against an extracted referral destination
// and returns the top matches, the caller's own facility excluded. Targets
// shorter than two characters after normalization match nothing; they would
// hit half the master.
func FindCandidates(targetName string, master []*Hospital, excludeID uuid.UUID) []Candidate {
	if targetName == "" || len(master) == 0 {
		return nil
	}
	normTarget := NormalizeForMatch(targetName)
	if len([]rune(normTarget)) < 2 {
		return nil
	}

	var scored []Candidate
	for _, h := range master {
		if h.ID == excludeID {
			continue
		}
		score := scoreMatch(normTarget, NormalizeForMatch(h.Name))
		if score > 0 {
			scored = append(scored, Candidate{ID: h.ID, Name: h.Name, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}
	return scored
}
