package models

import (
	"net/url"

	"gorm.io/datatypes"

	"github.com/avencore/datahaven/internal/connectors"
)

// Reason fields must include a brief description of the requesting project.
const MaxReasonLength = 511

// Source describes one external data source: where it lives, which
// connector plugin speaks its protocol, its credentials and cached
// authentication scheme, and its usage counters.
type Source struct {
	BaseModel

	Name        string `gorm:"not null;index" json:"name"`
	Description string `json:"description"`

	// Locator addresses the upstream resource: URL, file path, or
	// database/table identifier, depending on the plugin.
	Locator    string `gorm:"not null" json:"locator"`
	PluginName string `gorm:"index" json:"plugin_name"`
	APIKey     string `json:"-"`

	// AuthMethod caches the negotiated upstream authentication scheme.
	// AuthHost records the host it was negotiated against; the cached
	// scheme is never trusted for a locator on a different host.
	AuthMethod connectors.AuthMethod `gorm:"not null;default:0" json:"auth_method"`
	AuthHost   string                `json:"-"`

	// PublicLevel is the access level callers hold without an explicit grant.
	PublicLevel PermissionLevel `gorm:"not null;default:0" json:"public_permission_level"`

	// ProvExempt suppresses access provenance records for high-volume
	// utility sources. Update records are always kept.
	ProvExempt bool `gorm:"not null;default:false" json:"prov_exempt"`

	OwnerID uint  `gorm:"not null;index" json:"owner_id"`
	Owner   *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	LicenceID *uint    `gorm:"index" json:"licence_id"`
	Licence   *Licence `gorm:"foreignKey:LicenceID" json:"licence,omitempty"`

	// Settings carries plugin-specific options passed through to the
	// connector factory verbatim.
	Settings datatypes.JSON `json:"settings,omitempty"`

	// ExternalRequests counts upstream calls since the last scheduled
	// reset; ExternalRequestsTotal never resets. Both are only mutated
	// through atomic increments when an accounting scope closes.
	ExternalRequests      uint `gorm:"not null;default:0" json:"external_requests"`
	ExternalRequestsTotal uint `gorm:"not null;default:0" json:"external_requests_total"`

	IsDeleted bool `gorm:"not null;default:false;index" json:"-"`

	MetadataItems []MetadataItem    `gorm:"foreignKey:SourceID" json:"metadata_items,omitempty"`
	Grants        []PermissionGrant `gorm:"foreignKey:SourceID" json:"-"`
}

// IsOwnedBy reports whether the given user id owns this source.
func (s *Source) IsOwnedBy(userID uint) bool {
	return s.OwnerID != 0 && s.OwnerID == userID
}

// LocatorHost returns the host component of the locator, or "" when the
// locator is not a URL.
func (s *Source) LocatorHost() string {
	u, err := url.Parse(s.Locator)
	if err != nil {
		return ""
	}
	return u.Host
}

// PermissionGrant joins a user to a source with the level they were granted
// and the level they asked for. Unique per (user, source); a grant reduced
// to NONE is deleted rather than retained at zero.
type PermissionGrant struct {
	BaseModel

	UserID   uint `gorm:"not null;uniqueIndex:idx_grant_user_source" json:"user_id"`
	SourceID uint `gorm:"not null;uniqueIndex:idx_grant_user_source" json:"source_id"`

	Granted   PermissionLevel `gorm:"not null;default:0" json:"granted"`
	Requested PermissionLevel `gorm:"not null;default:0" json:"requested"`

	Reason string `gorm:"size:511" json:"reason"`

	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Source *Source `gorm:"foreignKey:SourceID" json:"-"`
}

// Licence is the licence a data source is published under.
type Licence struct {
	BaseModel

	OwnerID uint  `gorm:"not null;index" json:"owner_id"`
	Owner   *User `gorm:"foreignKey:OwnerID" json:"-"`

	Name      string `gorm:"not null;uniqueIndex:idx_licence_name_version" json:"name"`
	ShortName string `json:"short_name"`
	Version   string `gorm:"not null;uniqueIndex:idx_licence_name_version" json:"version"`
	URL       string `json:"url"`
}
