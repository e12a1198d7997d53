package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	auth := NewAuthenticator("s3cret")
	tok, err := auth.Issue(Identity{UserID: "u1", DisplayName: "Dana"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		query   string
		wantErr bool
	}{
		{name: "bearer header", header: "Bearer " + tok},
		{name: "query parameter", query: "?token=" + tok},
		{name: "missing", wantErr: true},
		{name: "wrong scheme", header: "Basic " + tok, wantErr: true},
		{name: "garbage", header: "Bearer abc.def.ghi", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/rooms"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			id, err := auth.Authenticate(r)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Identity{UserID: "u1", DisplayName: "Dana"}, id)
		})
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	auth := NewAuthenticator("s3cret")

	other, err := NewAuthenticator("different").Issue(Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = auth.Verify(other)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	expired, err := auth.Issue(Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(expired)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Verify(unsigned)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "x"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = auth.Verify(noSubject)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	id, err := auth.Verify(mustIssue(t, auth, Identity{UserID: "u9"}))
	require.NoError(t, err)
	assert.Equal(t, "u9", id.DisplayName, "display name falls back to the subject")
}

func mustIssue(t *testing.T, a *Authenticator, id Identity) string {
	t.Helper()
	tok, err := a.Issue(id, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestErrorPayload(t *testing.T) {
	p := errorPayload(rules.Reject(rules.ReasonNotYourTurn, "seat 2 is on turn"))
	assert.Equal(t, "NOT_YOUR_TURN", p.Code)
	assert.True(t, p.Recoverable)
	assert.Contains(t, p.Message, "seat 2")

	p = errorPayload(errors.New("boom"))
	assert.Equal(t, CodeInternal, p.Code)
	assert.False(t, p.Recoverable)
	assert.NotContains(t, p.Message, "boom")
}

func TestAllowOrigins(t *testing.T) {
	check := AllowOrigins([]string{"https://whist.example.com"})
	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "https://whist.example.com", want: true},
		{origin: "https://evil.example.com", want: false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws/rooms/ABC234", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, check(r), tt.origin)
	}

	r := httptest.NewRequest(http.MethodGet, "/ws/rooms/ABC234", nil)
	r.Header.Set("Origin", "https://anything.example")
	assert.True(t, AllowOrigins([]string{"*"})(r))
}
