package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-billing/internal/models"
	"github.com/noah-isme/sma-adp-billing/internal/service"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
)

type tokenValidatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (s tokenValidatorStub) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	return s.claims, s.err
}

func newRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(middlewares, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/billing/students/:id/status", handlers...)
	return r
}

func serve(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	valid := tokenValidatorStub{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleBursar}}

	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(JWT(valid)), "/billing/students/s-1/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(JWT(valid)), "/billing/students/s-1/status", "Basic abc").Code)
	assert.Equal(t, http.StatusNoContent, serve(newRouter(JWT(valid)), "/billing/students/s-1/status", "Bearer token").Code)

	expired := tokenValidatorStub{err: appErrors.ErrTokenExpired}
	rec := serve(newRouter(JWT(expired)), "/billing/students/s-1/status", "Bearer token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestRBAC(t *testing.T) {
	staff := RBAC(string(models.RoleAdmin), string(models.RoleBursar), SelfRole)

	cases := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		want   int
	}{
		{name: "no claims", path: "/billing/students/s-1/status", want: http.StatusUnauthorized},
		{name: "bursar", claims: &models.JWTClaims{Role: models.RoleBursar}, path: "/billing/students/s-1/status", want: http.StatusNoContent},
		{name: "student self", claims: &models.JWTClaims{Role: models.RoleStudent, StudentID: "s-1"}, path: "/billing/students/s-1/status", want: http.StatusNoContent},
		{name: "student other", claims: &models.JWTClaims{Role: models.RoleStudent, StudentID: "s-2"}, path: "/billing/students/s-1/status", want: http.StatusForbidden},
		{name: "teacher", claims: &models.JWTClaims{Role: models.RoleTeacher}, path: "/billing/students/s-1/status", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(newRouter(withClaims(tc.claims), staff), tc.path, "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	adminOnly := RequireRoles(models.RoleAdmin)
	rec := serve(newRouter(withClaims(&models.JWTClaims{Role: models.RoleBursar}), adminOnly), "/billing/students/s-1/status", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))
	require.Equal(t, http.StatusNoContent, serve(r, "/billing/students/s-1/status", "").Code)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `path="/billing/students/:id/status"`)

	global := gin.New()
	global.Use(Metrics(metrics))
	global.GET("/billing/settings", func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusNotFound, serve(global, "/billing/students/s-1/unknown", "").Code)

	rec = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `path="unmatched"`)
	assert.NotContains(t, rec.Body.String(), `path="/billing/students/s-1/unknown"`)

	assert.NotPanics(t, func() {
		serve(newRouter(Metrics(nil)), "/billing/students/s-1/status", "")
	})
}
