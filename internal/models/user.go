package models

import "time"

// UserDB represents a row of the users table.
type UserDB struct {
	ID        int64     `db:"id"`         // Primary key, assigned by the database
	Name      string    `db:"name"`       // Unique login name
	Sername   string    `db:"sername"`    // Display name, not unique
	Password  string    `db:"password"`   // Salted hash, never the plaintext
	CreatedAt time.Time `db:"created_at"` // Creation timestamp
	UpdatedAt time.Time `db:"updated_at"` // Last update timestamp
}

// ToResponse projects the row onto the public view, dropping the password.
func (u *UserDB) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Sername:   u.Sername,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserCreate represents the JSON body for creating a user
// swagger:model UserCreate
type UserCreate struct {
	// Unique login name
	// required: true
	// example: alice
	Name string `json:"name" validate:"required,max=64" example:"alice"`

	// Display name
	// required: true
	// example: Smith
	Sername string `json:"sername" validate:"required,max=120" example:"Smith"`

	// Plaintext password, stored hashed
	// required: true
	// example: secret123
	Password string `json:"password" validate:"required" example:"secret123"`
}

// UserUpdate represents the JSON body for a partial user update.
// Nil and empty fields are left untouched.
// swagger:model UserUpdate
type UserUpdate struct {
	// New login name
	// example: alice2
	Name *string `json:"name,omitempty" validate:"omitempty,max=64" example:"alice2"`

	// New display name
	// example: Johnson
	Sername *string `json:"sername,omitempty" validate:"omitempty,max=120" example:"Johnson"`

	// New plaintext password
	// example: newsecret
	Password *string `json:"password,omitempty" example:"newsecret"`
}

// UserResponse is the public view of a user
// swagger:model UserResponse
type UserResponse struct {
	// example: 1
	ID int64 `json:"id" example:"1"`
	// example: alice
	Name string `json:"name" example:"alice"`
	// example: Smith
	Sername string `json:"sername" example:"Smith"`
	// example: 2025-01-01T00:00:00Z
	CreatedAt time.Time `json:"created_at" example:"2025-01-01T00:00:00Z"`
	// example: 2025-01-01T00:00:00Z
	UpdatedAt time.Time `json:"updated_at" example:"2025-01-01T00:00:00Z"`
}
