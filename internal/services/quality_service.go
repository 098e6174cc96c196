package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/internal/quality"
	apperrors "github.com/avencore/datahaven/pkg/errors"
)

// ErrRulesetNotFound indicates the requested quality ruleset does not exist.
var ErrRulesetNotFound = apperrors.New("RULESET_NOT_FOUND", "Quality ruleset not found", http.StatusNotFound)

// QualityService manages quality rulesets and scores sources against them.
type QualityService struct {
	db *gorm.DB
}

// NewQualityService constructs a QualityService.
func NewQualityService(db *gorm.DB) (*QualityService, error) {
	if db == nil {
		return nil, errors.New("quality service: db is required")
	}
	return &QualityService{db: db}, nil
}

// CreateRuleset registers a new ruleset version.
func (s *QualityService) CreateRuleset(ctx context.Context, name, shortName, version string) (*models.QualityRuleset, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if version == "" {
		return nil, apperrors.NewBadRequest("version is required")
	}

	ruleset := &models.QualityRuleset{
		Name:      name,
		ShortName: strings.TrimSpace(shortName),
		Version:   version,
	}
	if err := s.db.WithContext(ctx).Create(ruleset).Error; err != nil {
		return nil, fmt.Errorf("quality service: create ruleset: %w", err)
	}
	return ruleset, nil
}

// GetRuleset fetches a ruleset with its full ladder loaded.
func (s *QualityService) GetRuleset(ctx context.Context, id uint) (*models.QualityRuleset, error) {
	ctx = ensureContext(ctx)

	var ruleset models.QualityRuleset
	err := s.db.WithContext(ctx).
		Preload("Levels").
		Preload("Levels.Criteria").
		First(&ruleset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRulesetNotFound
		}
		return nil, fmt.Errorf("quality service: get ruleset: %w", err)
	}
	return &ruleset, nil
}

// ListRulesets returns every ruleset with ladders loaded.
func (s *QualityService) ListRulesets(ctx context.Context) ([]models.QualityRuleset, error) {
	ctx = ensureContext(ctx)

	var rulesets []models.QualityRuleset
	err := s.db.WithContext(ctx).
		Preload("Levels").
		Preload("Levels.Criteria").
		Order("name").Order("version").
		Find(&rulesets).Error
	if err != nil {
		return nil, fmt.Errorf("quality service: list rulesets: %w", err)
	}
	return rulesets, nil
}

// DeleteRuleset removes a ruleset and its entire ladder.
func (s *QualityService) DeleteRuleset(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var levelIDs []uint
		if err := tx.Model(&models.QualityLevel{}).
			Where("ruleset_id = ?", id).
			Pluck("id", &levelIDs).Error; err != nil {
			return fmt.Errorf("quality service: collect levels: %w", err)
		}
		if len(levelIDs) > 0 {
			if err := tx.Where("level_id IN ?", levelIDs).Delete(&models.QualityCriterion{}).Error; err != nil {
				return fmt.Errorf("quality service: delete criteria: %w", err)
			}
			if err := tx.Where("ruleset_id = ?", id).Delete(&models.QualityLevel{}).Error; err != nil {
				return fmt.Errorf("quality service: delete levels: %w", err)
			}
		}
		result := tx.Delete(&models.QualityRuleset{}, id)
		if result.Error != nil {
			return fmt.Errorf("quality service: delete ruleset: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRulesetNotFound
		}
		return nil
	})
}

// AddLevel appends a rung to a ruleset's ladder. A nil threshold means
// every criterion at the level must be satisfied.
func (s *QualityService) AddLevel(ctx context.Context, rulesetID, level uint, threshold *float64) (*models.QualityLevel, error) {
	ctx = ensureContext(ctx)

	if level == 0 {
		return nil, apperrors.NewBadRequest("level must be positive")
	}
	if threshold != nil && *threshold < 0 {
		return nil, apperrors.NewBadRequest("threshold cannot be negative")
	}
	if _, err := s.GetRuleset(ctx, rulesetID); err != nil {
		return nil, err
	}

	rung := &models.QualityLevel{
		RulesetID: rulesetID,
		Level:     level,
		Threshold: threshold,
	}
	if err := s.db.WithContext(ctx).Create(rung).Error; err != nil {
		return nil, fmt.Errorf("quality service: add level: %w", err)
	}
	return rung, nil
}

// AddCriterion attaches a weighted metadata requirement to a level.
func (s *QualityService) AddCriterion(ctx context.Context, levelID, fieldID uint, weight float64) (*models.QualityCriterion, error) {
	ctx = ensureContext(ctx)

	if weight <= 0 {
		weight = 1
	}

	criterion := &models.QualityCriterion{
		LevelID: levelID,
		FieldID: fieldID,
		Weight:  weight,
	}
	if err := s.db.WithContext(ctx).Create(criterion).Error; err != nil {
		return nil, fmt.Errorf("quality service: add criterion: %w", err)
	}
	return criterion, nil
}

// EvaluateSource scores a source's metadata against every ruleset and
// returns the highest level reached per ruleset, keyed by short name
// (falling back to name when no short name is set).
func (s *QualityService) EvaluateSource(ctx context.Context, sourceID uint) (map[string]uint, error) {
	ctx = ensureContext(ctx)

	var items []models.MetadataItem
	if err := s.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("quality service: load metadata: %w", err)
	}

	rulesets, err := s.ListRulesets(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string]uint, len(rulesets))
	for i := range rulesets {
		ruleset := &rulesets[i]
		key := ruleset.ShortName
		if key == "" {
			key = ruleset.Name
		}
		results[key] = quality.Evaluate(ruleset, items)
	}
	return results, nil
}
