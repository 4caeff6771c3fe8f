package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaganhb01/Expense-Reimbursement-System/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       12,
		Username: "asha.menon",
		Role:     models.RoleManager,
		Grade:    models.GradeC,
	}
}

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret-key-32-bytes-long!!!", 30*time.Minute, 7*24*time.Hour)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, VerifyPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := newTestManager()

	pair, err := m.GeneratePair(testUser())
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(1800), pair.ExpiresIn)

	claims, err := m.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "asha.menon", claims.Username)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, models.GradeC, claims.Grade)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestJWTManager_TokenTypeEnforced(t *testing.T) {
	m := newTestManager()
	pair, err := m.GeneratePair(testUser())
	require.NoError(t, err)

	_, err = m.ValidateAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = m.ValidateRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = m.ValidateRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestJWTManager_Expiry(t *testing.T) {
	m := NewJWTManager("test-secret-key-32-bytes-long!!!", -time.Minute, time.Hour)
	pair, err := m.GeneratePair(testUser())
	require.NoError(t, err)

	_, err = m.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	pair, err := newTestManager().GeneratePair(testUser())
	require.NoError(t, err)

	other := NewJWTManager("a-completely-different-secret!!!", time.Hour, time.Hour)
	_, err = other.ValidateAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func setupAuthRouter(m *JWTManager, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Middleware(m)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := UserIDFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestMiddleware(t *testing.T) {
	m := newTestManager()
	r := setupAuthRouter(m)

	pair, err := m.GeneratePair(testUser())
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":12`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh token rejected on protected route", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	m := newTestManager()
	r := setupAuthRouter(m, RequireRoles(models.RoleFinance, models.RoleAdmin))

	pair, err := m.GeneratePair(testUser()) // manager
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	finance := testUser()
	finance.Role = models.RoleFinance
	pair, err = m.GeneratePair(finance)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
