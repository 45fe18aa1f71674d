// Package credstore provides durable credential stores mapping opaque
// session ids to AnyAuth tokens. The file store is the default backend;
// a Redis backend is available for deployments that already run one.
//
// Both backends treat a corrupt or shape-invalid stored value as a miss
// rather than an error: callers see the same nil token they would for an
// unknown session id. Neither backend evicts entries on its own.
package credstore

import (
	"regexp"

	errs "github.com/anyauth/gateway/internal/errors"
)

// Session ids are minted by the registration bridge as "usr_" plus hex, but
// the stores only require a path- and key-safe shape.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateSessionID(sessionID string) error {
	if sessionID == "" || !sessionIDPattern.MatchString(sessionID) {
		return errs.NewValidationError("session id", "must be a non-empty string of [A-Za-z0-9_-]")
	}
	return nil
}
