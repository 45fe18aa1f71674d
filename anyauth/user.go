package anyauth

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"

	errs "github.com/anyauth/gateway/internal/errors"
)

// User is a read-only projection of an AnyAuth user record. It is never
// mutated locally.
type User struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	FullName      *string        `json:"full_name"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Phone         *string        `json:"phone"`
	PhoneVerified bool           `json:"phone_verified"`
	Disabled      bool           `json:"disabled"`
	Profile       string         `json:"profile"`
	Picture       string         `json:"picture"`
	Website       string         `json:"website"`
	Gender        string         `json:"gender"`
	Birthdate     string         `json:"birthdate"`
	Zoneinfo      string         `json:"zoneinfo"`
	Locale        string         `json:"locale"`
	Address       string         `json:"address"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     int64          `json:"created_at"`
	UpdatedAt     int64          `json:"updated_at"`
}

// ParseUser validates raw JSON against the user shape.
func ParseUser(data []byte) (*User, error) {
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, errs.NewValidationError("user", err.Error())
	}

	var reasons []string
	if user.ID == "" {
		reasons = append(reasons, "id is required")
	}
	if user.Username == "" {
		reasons = append(reasons, "username is required")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		reasons = append(reasons, "email must be a valid address")
	}
	if len(reasons) > 0 {
		return nil, errs.NewValidationError("user", reasons...)
	}

	return &user, nil
}

const (
	usernameMinLength = 4
	usernameMaxLength = 64
	passwordMinLength = 8
	passwordMaxLength = 64
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// UserCreate is the payload for registering a new user with the AnyAuth API.
type UserCreate struct {
	Username string         `json:"username"`
	FullName *string        `json:"full_name,omitempty"`
	Email    string         `json:"email"`
	Phone    *string        `json:"phone,omitempty"`
	Password string         `json:"password"`
	Metadata map[string]any `json:"metadata"`
}

// Validate checks the registration payload format constraints.
func (uc *UserCreate) Validate() error {
	var reasons []string

	if len(uc.Username) < usernameMinLength || len(uc.Username) > usernameMaxLength {
		reasons = append(reasons, fmt.Sprintf("username must be between %d and %d characters", usernameMinLength, usernameMaxLength))
	} else if !usernamePattern.MatchString(uc.Username) {
		reasons = append(reasons, "username must only contain alphanumeric characters, underscores, or hyphens")
	}

	if _, err := mail.ParseAddress(uc.Email); err != nil {
		reasons = append(reasons, "email must be a valid address")
	}

	if len(uc.Password) < passwordMinLength || len(uc.Password) > passwordMaxLength {
		reasons = append(reasons, fmt.Sprintf("password must be between %d and %d characters", passwordMinLength, passwordMaxLength))
	}

	if len(reasons) > 0 {
		return errs.NewValidationError("user create payload", reasons...)
	}
	return nil
}
