package models

// QualityRuleset is an ordered ladder of quality levels used to score how
// complete a data source's metadata is.
type QualityRuleset struct {
	BaseModel

	Name      string `gorm:"not null;uniqueIndex:idx_ruleset_name_version" json:"name"`
	ShortName string `gorm:"uniqueIndex" json:"short_name"`
	Version   string `gorm:"not null;uniqueIndex:idx_ruleset_name_version" json:"version"`

	Levels []QualityLevel `gorm:"foreignKey:RulesetID" json:"levels,omitempty"`
}

// QualityLevel is one rung of a ruleset's ladder: the set of weighted
// criteria a source must satisfy to reach this level.
type QualityLevel struct {
	BaseModel

	RulesetID uint `gorm:"not null;uniqueIndex:idx_level_ruleset_level" json:"ruleset_id"`

	// Level orders the ladder; rungs are evaluated ascending.
	Level uint `gorm:"not null;uniqueIndex:idx_level_ruleset_level" json:"level"`

	// Threshold is the weight sum required to pass. When nil the
	// threshold defaults to the sum of all criterion weights at this
	// level, i.e. every criterion must be satisfied.
	Threshold *float64 `json:"threshold"`

	Ruleset  *QualityRuleset    `gorm:"foreignKey:RulesetID" json:"-"`
	Criteria []QualityCriterion `gorm:"foreignKey:LevelID" json:"criteria,omitempty"`
}

// QualityCriterion contributes its weight to a level's score when the
// assessed source has at least one metadata item for the referenced field.
type QualityCriterion struct {
	BaseModel

	LevelID uint `gorm:"not null;uniqueIndex:idx_criterion_level_field" json:"level_id"`
	FieldID uint `gorm:"not null;uniqueIndex:idx_criterion_level_field" json:"field_id"`

	Weight float64 `gorm:"not null;default:1" json:"weight"`

	Level *QualityLevel  `gorm:"foreignKey:LevelID" json:"-"`
	Field *MetadataField `gorm:"foreignKey:FieldID" json:"field,omitempty"`
}
