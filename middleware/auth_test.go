package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// echoUser writes the authenticated user ID and role, or "anonymous".
func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		if err != nil {
			_, _ = io.WriteString(w, "anonymous")
			return
		}
		role, _ := GetUserRoleFromContext(r.Context())
		_, _ = io.WriteString(w, strconv.Itoa(id)+":"+string(role))
	})
}

func request(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	a := newTestAuthenticator()
	token, err := a.IssueToken(42, RoleOrganizer, time.Hour)
	require.NoError(t, err)

	rec := request(t, a.Authenticate(echoUser()), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42:organizer", rec.Body.String())
}

func TestAuthenticateRejects(t *testing.T) {
	a := newTestAuthenticator()

	expired, err := a.IssueToken(42, RoleOrganizer, -time.Minute)
	require.NoError(t, err)

	foreign, err := NewAuthenticator("other-secret", slog.New(slog.NewTextHandler(io.Discard, nil))).
		IssueToken(42, RoleAdmin, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1, "role": "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"missing":      "",
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong secret": foreign,
		"alg none":     unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			rec := request(t, a.Authenticate(echoUser()), token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	a := newTestAuthenticator()
	h := a.OptionalAuthenticate(echoUser())

	rec := request(t, h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	token, err := a.IssueToken(7, RolePlayer, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "7:player", rec.Body.String(), "token query parameter is accepted")

	rec = request(t, h, "broken")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	a := newTestAuthenticator()
	h := a.Authenticate(RequireRole(RoleOrganizer, RoleAdmin)(echoUser()))

	for role, want := range map[Role]int{
		RoleOrganizer: http.StatusOK,
		RoleAdmin:     http.StatusOK,
		RolePlayer:    http.StatusForbidden,
	} {
		token, err := a.IssueToken(1, role, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, request(t, h, token).Code, "role %s", role)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 1, "role": "root"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, token).Code, "unknown roles are rejected")
}

func TestGetUserIDFromContextClaimTypes(t *testing.T) {
	a := newTestAuthenticator()

	for name, tc := range map[string]struct {
		claim any
		want  string
	}{
		"string id":  {"15", "15:admin"},
		"float id":   {float64(16), "16:admin"},
		"fractional": {16.5, "anonymous"},
		"negative":   {-3, "anonymous"},
		"wrong type": {true, "anonymous"},
		"missing id": {nil, "anonymous"},
	} {
		t.Run(name, func(t *testing.T) {
			claims := jwt.MapClaims{"role": "admin"}
			if tc.claim != nil {
				claims["user_id"] = tc.claim
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			require.NoError(t, err)
			assert.Equal(t, tc.want, request(t, a.Authenticate(echoUser()), token).Body.String())
		})
	}
}
