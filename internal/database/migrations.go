package database

import (
	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Licence{},
		&models.Source{},
		&models.PermissionGrant{},
		&models.MetadataField{},
		&models.MetadataItem{},
		&models.QualityRuleset{},
		&models.QualityLevel{},
		&models.QualityCriterion{},
		&models.AuditLog{},
	)
}

// SeedData populates the metadata fields the service itself interprets.
func SeedData(db *gorm.DB) error {
	fields := []models.MetadataField{
		{
			Name:        "Data Query Parameter",
			ShortName:   models.FieldDataQueryParam,
			Operational: true,
		},
		{
			Name:        "Indexed Field",
			ShortName:   models.FieldIndexedField,
			Operational: true,
		},
	}

	for _, field := range fields {
		if err := db.Where(models.MetadataField{ShortName: field.ShortName}).Attrs(field).FirstOrCreate(&models.MetadataField{}).Error; err != nil {
			return err
		}
	}

	return nil
}
