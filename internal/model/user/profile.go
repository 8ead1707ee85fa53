package user

import (
	"errors"
	"reflect"
	"strings"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailRequired = errors.New("email is required")
)

// EmailField is the key every stored profile carries.
const EmailField = "email"

// Profile is a free-form user document keyed by email.
type Profile map[string]any

// Email returns the profile's email, or "" when absent.
func (p Profile) Email() string {
	email, _ := p[EmailField].(string)
	return email
}

// Clone makes a shallow copy.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge sets every top-level field of fields onto a copy of p and reports
// whether anything changed. The email field is pinned to email.
func (p Profile) Merge(email string, fields Profile) (Profile, bool) {
	merged := p.Clone()
	changed := false
	for k, v := range fields {
		if k == EmailField {
			continue
		}
		if old, ok := merged[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		merged[k] = v
		changed = true
	}
	if merged.Email() != email {
		merged[EmailField] = email
		changed = true
	}
	return merged, changed
}

// NormalizeEmail trims the key and rejects empty values.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	return email, nil
}

// WriteResult reports the outcome of an upsert or update.
type WriteResult struct {
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	UpsertedCount int64  `json:"upsertedCount"`
	UpsertedID    string `json:"upsertedId,omitempty"`
}
