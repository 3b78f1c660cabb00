package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuth(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		op := GetOperador(c)
		c.JSON(http.StatusOK, gin.H{"id": op.ID.String(), "nombre": op.Nombre, "rol": GetClaims(c).Rol})
	})
	r.GET("/admin", RequireRole(RolAdministrador), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

// ── JWT ──────────────────────────────────────────────────────────────────────

func TestJWTAuth_ValidTokenSetsOperador(t *testing.T) {
	id := uuid.New()
	tok, err := IssueToken(testSecret, id, "ana", RolCajero, time.Hour)
	require.NoError(t, err)

	w := serve(authRouter(), http.MethodGet, "/protected", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+id.String()+`","nombre":"ana","rol":"cajero"}`, w.Body.String())
}

func TestJWTAuth_Rejections(t *testing.T) {
	expired, err := IssueToken(testSecret, uuid.New(), "ana", RolCajero, -time.Second)
	require.NoError(t, err)
	otherKey, err := IssueToken("otra-clave", uuid.New(), "ana", RolCajero, time.Hour)
	require.NoError(t, err)
	sinIdentidad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: "no-es-uuid", Username: "ana", Rol: RolCajero,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{UserID: uuid.NewString(), Username: "ana"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"sin token":     "",
		"expirado":      expired,
		"otra clave":    otherKey,
		"sin identidad": sinIdentidad,
		"alg none":      unsigned,
	}
	r := authRouter()
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/protected", tok).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := authRouter()
	cajero, _ := IssueToken(testSecret, uuid.New(), "ana", RolCajero, time.Hour)
	admin, _ := IssueToken(testSecret, uuid.New(), "bea", RolAdministrador, time.Hour)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", cajero).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin", admin).Code)
}

// ── Rate limiter ─────────────────────────────────────────────────────────────

func TestRateLimiter_BlocksUntilWindowEnds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, func() time.Time { return now })
	r := gin.New()
	r.Use(rl.handle())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)

	w := serve(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "61", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"retryable":true`)

	now = now.Add(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
}

func TestRateLimiter_PurgesExpiredEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(5, time.Second, func() time.Time { return now })
	rl.entries["10.0.0.1"] = &rateEntry{count: 1, windowEnd: now.Add(-time.Second)}
	rl.entries["10.0.0.2"] = &rateEntry{count: 1, windowEnd: now.Add(time.Second)}

	rl.purgeLocked(now)
	assert.NotContains(t, rl.entries, "10.0.0.1")
	assert.Contains(t, rl.entries, "10.0.0.2")
}

// ── Request ID ───────────────────────────────────────────────────────────────

func TestRequestID_EchoesOrMints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = serve(r, http.MethodGet, "/", "")
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRecovery_TurnsPanicInto500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
