package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/triviagame/internal/api/apierr"
	"github.com/mcoot/triviagame/internal/api/middleware"
	"github.com/mcoot/triviagame/internal/factory"
	"github.com/mcoot/triviagame/internal/testutil"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.ErrorResponse {
	t.Helper()
	var body apierr.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestRecoveryReturnsInternalErrorWithRequestID(t *testing.T) {
	logger, logs := testutil.NewBufferLogger()
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := middleware.Recovery(logger)(middleware.Logging(logger)(panicking))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/games/quiz01", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, apierr.CodeInternalError, body.Error.Code)
	assert.Equal(t, "req-42", body.RequestID)

	entry, ok := logs.Find("panic recovered")
	require.True(t, ok)
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "boom", entry["panic"])
}

func TestLoggingAssignsRequestID(t *testing.T) {
	logger, logs := testutil.NewBufferLogger()
	h := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	id := rr.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)

	entry, ok := logs.Find("http request")
	require.True(t, ok)
	assert.Equal(t, id, entry["request_id"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	app := factory.NewTestApp()
	h := middleware.Auth(app.AuthService)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/players/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Error.Code)
		})
	}
}

func TestAuthPutsPlayerInContext(t *testing.T) {
	app := factory.NewTestApp()
	sess, err := app.AuthService.CreateGuestPlayer(t.Context(), "Alice")
	require.NoError(t, err)

	var name string
	h := middleware.Auth(app.AuthService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name = middleware.MustGetPlayer(r.Context()).DisplayName
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Alice", name)
}
