package models

import "time"

// OAuthProvider is the closed set of external identity providers tokens are issued by.
type OAuthProvider string

// ProviderD2L is the Brightspace LMS.
const ProviderD2L OAuthProvider = "d2l"

// UnitMapping links a unit to its LMS org unit and, once created, the result grade item.
type UnitMapping struct {
	ID            string    `db:"id" json:"id"`
	UnitID        string    `db:"unit_id" json:"unit_id"`
	OrgUnitID     string    `db:"org_unit_id" json:"org_unit_id"`
	GradeObjectID *string   `db:"grade_object_id" json:"grade_object_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// OAuthState is a pending authorization request.
type OAuthState struct {
	ID        string    `db:"id" json:"id"`
	State     string    `db:"state" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OAuthToken is an issued access token. Token holds plaintext in memory; the repository seals it
// before writing.
type OAuthToken struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	Provider  OAuthProvider `db:"provider" json:"provider"`
	Token     string        `db:"token" json:"-"`
	ExpiresAt time.Time     `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// LiveFor reports whether the token stays valid for at least d after now.
func (t OAuthToken) LiveFor(now time.Time, d time.Duration) bool {
	return !t.ExpiresAt.Before(now.Add(d))
}
