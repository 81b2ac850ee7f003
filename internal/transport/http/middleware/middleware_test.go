package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"clipshare/internal/httputil"
	"clipshare/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validToken(t *testing.T, userID int64) string {
	return signToken(t, testSecret, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
}

// echoViewer responds with the viewer id, or 0 when anonymous.
var echoViewer = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := GetUserIDFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"viewer": id})
})

func viewerOf(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	var body map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["viewer"]
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	expired := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantCode   string
		wantViewer int64
	}{
		{name: "bearer header", header: "Bearer " + validToken(t, 7), wantStatus: http.StatusOK, wantViewer: 7},
		{name: "lowercase scheme", header: "bearer " + validToken(t, 8), wantStatus: http.StatusOK, wantViewer: 8},
		{name: "cookie fallback", cookie: validToken(t, 9), wantStatus: http.StatusOK, wantViewer: 9},
		{name: "missing", wantStatus: http.StatusUnauthorized, wantCode: httputil.ErrCodeUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantCode: model.CodeTokenExpired},
		{name: "garbage", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantCode: model.CodeTokenInvalid},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, "other", jwt.MapClaims{"user_id": 7}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenInvalid,
		},
		{
			name:       "no user claim",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "x"}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   model.CodeTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(testSecret)(echoViewer).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, rec))
				return
			}
			assert.Equal(t, tt.wantViewer, viewerOf(t, rec))
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	h := OptionalAuthMiddleware(testSecret)(echoViewer)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, viewerOf(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, viewerOf(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t, 3))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, int64(3), viewerOf(t, rec))
}

func TestViewerFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, ViewerFromContext(req.Context()))

	ctx := context.WithValue(req.Context(), UserIDKey, int64(11))
	viewer := ViewerFromContext(ctx)
	require.NotNil(t, viewer)
	assert.Equal(t, int64(11), *viewer)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ok := RequestLogger(logger)(echoViewer)
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	failing := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteInternalError(w, "boom")
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/posts", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusInternalServerError, entries[1].ContextMap()["status"])
}
