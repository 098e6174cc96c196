package models

import "fmt"

// PermissionLevel is the ordered access tier a caller holds on a data source.
// The integer values are stable wire values; comparisons use integer order.
type PermissionLevel int

const (
	// PermissionNone grants nothing.
	PermissionNone PermissionLevel = 0
	// PermissionView allows viewing the source in listings and detail pages.
	PermissionView PermissionLevel = 1
	// PermissionMeta allows querying source metadata and dataset listings.
	PermissionMeta PermissionLevel = 2
	// PermissionData allows querying source data.
	PermissionData PermissionLevel = 3
	// PermissionProv allows querying source provenance records.
	PermissionProv PermissionLevel = 4
)

var permissionLevelNames = map[PermissionLevel]string{
	PermissionNone: "NONE",
	PermissionView: "VIEW",
	PermissionMeta: "META",
	PermissionData: "DATA",
	PermissionProv: "PROV",
}

func (l PermissionLevel) String() string {
	if name, ok := permissionLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("PermissionLevel(%d)", int(l))
}

// Valid reports whether l is one of the defined levels.
func (l PermissionLevel) Valid() bool {
	_, ok := permissionLevelNames[l]
	return ok
}

// ParsePermissionLevel maps a level name to its PermissionLevel value.
func ParsePermissionLevel(name string) (PermissionLevel, error) {
	for level, levelName := range permissionLevelNames {
		if levelName == name {
			return level, nil
		}
	}
	return PermissionNone, fmt.Errorf("models: unknown permission level %q", name)
}
