// Package uuid generates UUIDv7 identifiers for database primary keys.
// UUIDv7 is time-ordered, which keeps index pages warm and makes journal
// rows sortable by creation time as a tie-breaker.
package uuid

import googleuuid "github.com/google/uuid"

// New returns a new UUIDv7 string. Falls back to UUIDv4 if the system
// entropy source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse validates and canonicalizes a UUID string.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid reports whether s is a valid UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
