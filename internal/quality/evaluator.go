package quality

import (
	"sort"

	"github.com/avencore/datahaven/internal/models"
)

// DefaultRelativeTolerance absorbs floating-point error when comparing a
// level's achieved weight against its threshold.
const DefaultRelativeTolerance = 1e-3

// Evaluate scores a source's metadata against a ruleset and returns the
// highest quality level reached, or 0 when none passed.
//
// Levels form a cumulative ladder walked in ascending order; the walk stops
// at the first failing level, so a source cannot hold level N+2 without
// also holding N+1. The ruleset's levels must be loaded with their criteria.
func Evaluate(ruleset *models.QualityRuleset, items []models.MetadataItem) uint {
	if ruleset == nil {
		return 0
	}

	present := make(map[uint]bool, len(items))
	for _, item := range items {
		present[item.FieldID] = true
	}

	levels := make([]models.QualityLevel, len(ruleset.Levels))
	copy(levels, ruleset.Levels)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	var passed uint
	for _, level := range levels {
		if !levelPasses(level, present) {
			break
		}
		passed = level.Level
	}
	return passed
}

// levelPasses sums the weights of satisfied criteria (the source has at
// least one metadata item for the criterion's field) and compares against
// the threshold, defaulting to the total weight when none is set.
func levelPasses(level models.QualityLevel, present map[uint]bool) bool {
	var total, achieved float64
	for _, criterion := range level.Criteria {
		total += criterion.Weight
		if present[criterion.FieldID] {
			achieved += criterion.Weight
		}
	}

	threshold := total
	if level.Threshold != nil {
		threshold = *level.Threshold
	}

	return achieved >= threshold*(1-DefaultRelativeTolerance)
}
