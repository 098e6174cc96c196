package models

import "regexp"

// Operational metadata fields carry behaviour inside the broker itself and
// are seeded on every deployment (see database.SeedData).
const (
	FieldDataQueryParam = "data_query_param"
	FieldIndexedField   = "indexed_field"
)

var shortNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// MetadataField is a registry entry for a fact that may be attached to data
// sources, and doubles as the predicate a quality criterion tests.
type MetadataField struct {
	BaseModel

	Name      string `gorm:"not null;uniqueIndex" json:"name"`
	ShortName string `gorm:"not null;uniqueIndex" json:"short_name"`

	// Operational marks fields with an effect inside the broker.
	Operational bool `gorm:"not null;default:false" json:"operational"`
}

// ValidShortName reports whether s is usable as a field short name: a
// letter followed by letters, digits and underscores.
func ValidShortName(s string) bool {
	return shortNamePattern.MatchString(s)
}

// MetadataItem is one value of a metadata field on a data source. A field
// may hold several values per source; the (field, source, value) triple is
// unique.
type MetadataItem struct {
	BaseModel

	Value string `gorm:"size:511;uniqueIndex:idx_item_field_source_value" json:"value"`

	FieldID  uint `gorm:"not null;uniqueIndex:idx_item_field_source_value" json:"field_id"`
	SourceID uint `gorm:"not null;uniqueIndex:idx_item_field_source_value;index" json:"source_id"`

	Field  *MetadataField `gorm:"foreignKey:FieldID" json:"field,omitempty"`
	Source *Source        `gorm:"foreignKey:SourceID" json:"-"`
}
