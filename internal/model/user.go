// Package model defines the data structures used throughout the application.
//
// Struct tags serve two readers: `json` for the REST API and `db` for sqlx
// when scanning rows in the repository layer.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is tagged json:"-" so no read path can leak it into a response.
// Name is a pointer because the column is nullable and registration does not
// require it.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Name         *string   `json:"name"       db:"name"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserPatch lists the self-service fields a user may change.
// Password holds the new plaintext; the service hashes it before storage.
type UserPatch struct {
	Name     Optional[*string] `json:"name"`
	Email    Optional[string]  `json:"email"`
	Password Optional[string]  `json:"password"`
}

// UserChanges is what the store writes: the hashed form of a UserPatch.
type UserChanges struct {
	Name         Optional[*string]
	Email        Optional[string]
	PasswordHash Optional[string]
}

// Empty reports whether no column would be written.
func (c UserChanges) Empty() bool {
	return !c.Name.Set && !c.Email.Set && !c.PasswordHash.Set
}
