package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSharedSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"matching secret", "s3cret-indexer", "s3cret-indexer", http.StatusOK},
		{"wrong secret", "s3cret-indexer", "guess", http.StatusForbidden},
		{"missing header", "s3cret-indexer", "", http.StatusForbidden},
		{"unconfigured secret rejects", "", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/hook", SharedSecret("Authorization", tt.secret, zerolog.Nop()), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"msg": "OK"})
			})

			req := httptest.NewRequest(http.MethodPost, "/hook", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, "AUTH_005", decodeError(t, w)["error_code"])
			}
		})
	}
}

func TestJWTAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	projectID := uuid.New()

	tokenSvc.EXPECT().Validate("good").Return(&ports.TokenClaims{ProjectID: projectID, Subject: "ops@acme"}, nil)
	tokenSvc.EXPECT().Validate("expired").Return(nil, errors.New("token is expired"))

	r := gin.New()
	r.GET("/console", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		id, ok := ProjectID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"project": id.String(), "subject": c.GetString(CtxSubject)})
	})

	cases := []struct {
		header string
		want   int
	}{
		{"Bearer good", http.StatusOK},
		{"Bearer expired", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/console", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "header=%q", tc.header)
		if tc.want == http.StatusOK {
			assert.Contains(t, w.Body.String(), projectID.String())
			assert.Contains(t, w.Body.String(), "ops@acme")
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, inbound)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("nil map write") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", decodeError(t, w)["error_code"])
}
