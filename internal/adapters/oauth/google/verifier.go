package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pollsystem/api/internal/core/ports"
	"google.golang.org/api/idtoken"
)

var (
	errMissingEmail    = errors.New("email not found in claims")
	errEmailUnverified = errors.New("email is not verified")
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// IDTokenVerifier checks Google Identity Services credentials against the OAuth client ID.
type IDTokenVerifier struct {
	validate validateFunc
}

func NewVerifier() ports.TokenVerifier {
	return &IDTokenVerifier{validate: idtoken.Validate}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, credential string, clientID string) (*ports.TokenPayload, error) {
	const op = "google.IDTokenVerifier.Verify"

	if clientID == "" {
		return nil, fmt.Errorf("%s: google client id is not configured", op)
	}

	payload, err := v.validate(ctx, credential, clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%s: %w", op, errMissingEmail)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, fmt.Errorf("%s: %w", op, errEmailUnverified)
	}

	name, _ := payload.Claims["name"].(string)
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return &ports.TokenPayload{Email: email, Name: name}, nil
}
