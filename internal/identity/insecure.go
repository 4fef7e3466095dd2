package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
)

// InsecureVerifier decodes JWT claims WITHOUT checking the signature.
// Only intended for local/integration runs under explicit opt-in (ALLOW_INSECURE_TOKEN=true).
type InsecureVerifier struct{}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{} }

func (v *InsecureVerifier) Verify(ctx context.Context, raw string) (sessions.Identity, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return sessions.Identity{}, errors.Join(ErrRejected, errors.New("invalid token format"))
	}
	payload := parts[1]
	// pad base64
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return sessions.Identity{}, errors.Join(ErrRejected, err)
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return sessions.Identity{}, errors.Join(ErrRejected, err)
	}
	return FromClaims(claims)
}
