package models

import "time"

// BaseModel provides shared fields for all persistent domain models.
// Domain rows are keyed by auto-increment integer ids.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
