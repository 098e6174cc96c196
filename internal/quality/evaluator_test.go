package quality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avencore/datahaven/internal/models"
)

func items(fieldIDs ...uint) []models.MetadataItem {
	out := make([]models.MetadataItem, 0, len(fieldIDs))
	for _, id := range fieldIDs {
		out = append(out, models.MetadataItem{FieldID: id, Value: "x"})
	}
	return out
}

func level(n uint, threshold *float64, fieldIDs ...uint) models.QualityLevel {
	criteria := make([]models.QualityCriterion, 0, len(fieldIDs))
	for _, id := range fieldIDs {
		criteria = append(criteria, models.QualityCriterion{FieldID: id, Weight: 1})
	}
	return models.QualityLevel{Level: n, Threshold: threshold, Criteria: criteria}
}

func ptr(v float64) *float64 { return &v }

func TestEvaluateNilRuleset(t *testing.T) {
	require.Equal(t, uint(0), Evaluate(nil, items(1)))
}

func TestEvaluateEmptyLadder(t *testing.T) {
	ruleset := &models.QualityRuleset{}
	require.Equal(t, uint(0), Evaluate(ruleset, items(1)))
}

func TestEvaluateFullLadder(t *testing.T) {
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{
		level(1, nil, 1),
		level(2, nil, 1, 2),
		level(3, nil, 1, 2, 3),
	}}

	require.Equal(t, uint(3), Evaluate(ruleset, items(1, 2, 3)))
	require.Equal(t, uint(2), Evaluate(ruleset, items(1, 2)))
	require.Equal(t, uint(1), Evaluate(ruleset, items(1)))
	require.Equal(t, uint(0), Evaluate(ruleset, nil))
}

func TestEvaluateShortCircuitsAtFirstFailure(t *testing.T) {
	// Field 2 is missing, so level 2 fails even though level 3's criteria
	// are all satisfied.
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{
		level(1, nil, 1),
		level(2, nil, 2),
		level(3, nil, 3),
	}}

	require.Equal(t, uint(1), Evaluate(ruleset, items(1, 3)))
}

func TestEvaluateUnorderedLevelsSorted(t *testing.T) {
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{
		level(3, nil, 1, 2, 3),
		level(1, nil, 1),
		level(2, nil, 1, 2),
	}}

	require.Equal(t, uint(2), Evaluate(ruleset, items(1, 2)))
}

func TestEvaluateThresholdAllowsPartial(t *testing.T) {
	// Two of three criteria met against a threshold of 2 passes.
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{
		level(1, ptr(2), 1, 2, 3),
	}}

	require.Equal(t, uint(1), Evaluate(ruleset, items(1, 2)))
	require.Equal(t, uint(0), Evaluate(ruleset, items(1)))
}

func TestEvaluateWeights(t *testing.T) {
	heavy := models.QualityLevel{
		Level:     1,
		Threshold: ptr(5),
		Criteria: []models.QualityCriterion{
			{FieldID: 1, Weight: 5},
			{FieldID: 2, Weight: 1},
		},
	}
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{heavy}}

	require.Equal(t, uint(1), Evaluate(ruleset, items(1)))
	require.Equal(t, uint(0), Evaluate(ruleset, items(2)))
}

func TestEvaluateToleranceAbsorbsFloatError(t *testing.T) {
	// 0.1+0.2 != 0.3 exactly in floating point; the relative tolerance
	// must still let the level pass.
	lvl := models.QualityLevel{
		Level:     1,
		Threshold: ptr(0.3),
		Criteria: []models.QualityCriterion{
			{FieldID: 1, Weight: 0.1},
			{FieldID: 2, Weight: 0.2},
		},
	}
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{lvl}}

	require.Equal(t, uint(1), Evaluate(ruleset, items(1, 2)))
}

func TestEvaluateLevelWithNoCriteriaPasses(t *testing.T) {
	ruleset := &models.QualityRuleset{Levels: []models.QualityLevel{
		level(1, nil),
		level(2, nil, 1),
	}}

	require.Equal(t, uint(2), Evaluate(ruleset, items(1)))
	require.Equal(t, uint(1), Evaluate(ruleset, nil))
}
