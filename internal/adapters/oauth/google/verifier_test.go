package google

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func fakeValidate(claims map[string]interface{}, err error) validateFunc {
	return func(_ context.Context, _, _ string) (*idtoken.Payload, error) {
		if err != nil {
			return nil, err
		}
		return &idtoken.Payload{Claims: claims}, nil
	}
}

func TestIDTokenVerifier_Verify(t *testing.T) {
	tests := []struct {
		name     string
		claims   map[string]interface{}
		err      error
		clientID string
		want     string
		wantErr  error
	}{
		{
			name:     "full profile",
			claims:   map[string]interface{}{"email": "ana@example.com", "name": "Ana", "email_verified": true},
			clientID: "client",
			want:     "Ana",
		},
		{
			name:     "name falls back to email",
			claims:   map[string]interface{}{"email": "bob@example.com"},
			clientID: "client",
			want:     "bob",
		},
		{
			name:     "missing email",
			claims:   map[string]interface{}{"name": "Nobody"},
			clientID: "client",
			wantErr:  errMissingEmail,
		},
		{
			name:     "unverified email",
			claims:   map[string]interface{}{"email": "eve@example.com", "email_verified": false},
			clientID: "client",
			wantErr:  errEmailUnverified,
		},
		{
			name:     "rejected token",
			err:      assert.AnError,
			clientID: "client",
			wantErr:  assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &IDTokenVerifier{validate: fakeValidate(tt.claims, tt.err)}

			payload, err := v.Verify(context.Background(), "credential", tt.clientID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload.Name)
		})
	}
}

func TestIDTokenVerifier_RequiresClientID(t *testing.T) {
	v := &IDTokenVerifier{validate: fakeValidate(map[string]interface{}{"email": "a@example.com"}, nil)}

	_, err := v.Verify(context.Background(), "credential", "")
	assert.Error(t, err)
}
