package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a provenance event against a resource: creations,
// updates, and data/metadata accesses. Events are recorded fire-and-forget;
// the core never blocks on them.
type AuditLog struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	ResourceType string         `gorm:"not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   uint           `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	ActorID      *uint          `gorm:"index" json:"actor_id"`
	Actor        *User          `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action       string         `gorm:"not null;index" json:"action"`
	Result       string         `gorm:"not null" json:"result"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
