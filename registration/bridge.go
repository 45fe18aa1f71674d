// Package registration turns an external-provider profile into a local
// session: it registers the user with the AnyAuth API through the service
// identity, mints an opaque session id and persists the issued token.
package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anyauth/gateway/anyauth"
	"github.com/anyauth/gateway/google"
	errs "github.com/anyauth/gateway/internal/errors"
)

const sessionIDBytes = 64

// Registrar is the slice of the service client the bridge needs.
type Registrar interface {
	RegisterUser(ctx context.Context, userData anyauth.UserCreate) (*anyauth.Token, error)
}

// Bridge orchestrates provider profile to local session conversion. Cookie
// writing stays with the HTTP boundary; the bridge only mints the id and
// persists the token.
type Bridge struct {
	registrar Registrar
	store     anyauth.TokenStore
	logger    zerolog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets a structured logger.
func WithLogger(logger zerolog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = logger }
}

// New creates a registration bridge.
func New(registrar Registrar, store anyauth.TokenStore, options ...BridgeOption) (*Bridge, error) {
	if registrar == nil {
		return nil, fmt.Errorf("[registration New] registrar is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[registration New] store is required")
	}
	b := &Bridge{registrar: registrar, store: store, logger: zerolog.Nop()}
	for _, option := range options {
		option(b)
	}
	return b, nil
}

// Register converts the provider profile into a registration call and a
// stored session. It returns the minted session id and the issued token.
func (b *Bridge) Register(ctx context.Context, profile *google.Profile) (string, *anyauth.Token, error) {
	token, err := b.registrar.RegisterUser(ctx, profile.ToUserCreate())
	if err != nil {
		return "", nil, errs.Wrapf(err, "[Bridge Register]")
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return "", nil, errs.Wrapf(err, "[Bridge Register]")
	}

	if err := b.store.Put(ctx, sessionID, token); err != nil {
		return "", nil, errs.Wrapf(err, "[Bridge Register] persist token")
	}

	b.logger.Info().Str("email", profile.Email).Msg("registered provider user and minted session")
	return sessionID, token, nil
}

// NewSessionID mints an opaque high-entropy session identifier:
// "usr_" plus 64 cryptographically random bytes, hex encoded.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errs.Wrapf(err, "[NewSessionID] read random bytes")
	}
	return "usr_" + hex.EncodeToString(b), nil
}
