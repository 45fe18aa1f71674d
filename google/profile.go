package google

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/anyauth/gateway/anyauth"
	errs "github.com/anyauth/gateway/internal/errors"
	"github.com/anyauth/gateway/internal/utils"
)

// Profile is the validated userinfo payload returned by Google.
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

// ParseProfile validates raw userinfo JSON against the profile shape.
func ParseProfile(data []byte) (*Profile, error) {
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, errs.NewValidationError("google profile", err.Error())
	}

	var reasons []string
	if profile.ID == "" {
		reasons = append(reasons, "id is required")
	}
	if profile.Email == "" {
		reasons = append(reasons, "email is required")
	}
	if len(reasons) > 0 {
		return nil, errs.NewValidationError("google profile", reasons...)
	}
	return &profile, nil
}

// ToUserCreate maps the provider profile to an AnyAuth registration
// payload. The username derives deterministically from the email
// local-part. The password is random and thrown away: the user
// authenticates via Google, never with this password.
func (p *Profile) ToUserCreate() anyauth.UserCreate {
	return anyauth.UserCreate{
		Username: strings.SplitN(p.Email, "@", 2)[0],
		FullName: utils.Ptr(p.Name),
		Email:    p.Email,
		Password: throwawayPassword(),
		Metadata: map[string]any{
			"provider":       "google",
			"googleId":       p.ID,
			"picture":        p.Picture,
			"verified_email": p.VerifiedEmail,
		},
	}
}

func throwawayPassword() string {
	b := make([]byte, 24)
	rand.Read(b)
	return hex.EncodeToString(b)
}
