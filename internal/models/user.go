package models

// User is an API caller. Identity management proper lives outside this
// system; only the fields the permission gate needs are kept here.
type User struct {
	BaseModel

	Username     string `gorm:"not null;uniqueIndex" json:"username"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"is_admin"`

	Sources []Source          `gorm:"foreignKey:OwnerID" json:"-"`
	Grants  []PermissionGrant `gorm:"foreignKey:UserID" json:"-"`
}
