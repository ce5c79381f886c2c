package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuth(t *testing.T) {
	svc := NewTokenService("test-secret", "gosocial", time.Hour)
	token, err := svc.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	var seen string
	protected := BearerAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReason string
	}{
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusNoContent},
		{name: "scheme is case-insensitive", header: "bearer " + token, wantStatus: http.StatusNoContent},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantReason: ReasonMissingToken},
		{name: "wrong scheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized, wantReason: ReasonMissingToken},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantReason: ReasonMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantReason == "" {
				assert.Equal(t, "user-1", seen)
				return
			}
			assert.Empty(t, seen)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantReason, body["reason"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(Validation(ReasonEmptyContent, "empty")))
	assert.Equal(t, http.StatusNotFound, StatusFor(NotFound(ReasonMessageNotFound, "gone")))
	assert.Equal(t, http.StatusForbidden, StatusFor(Forbidden(ReasonNotSender, "no")))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(Unauthenticated(ReasonExpiredToken, "expired", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestUserIDFromContext_Empty(t *testing.T) {
	_, ok := UserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), ""))
	assert.False(t, ok)
}
