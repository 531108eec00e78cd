package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ReportStudio/internal/db"
	"github.com/router-for-me/ReportStudio/internal/models"
	"github.com/router-for-me/ReportStudio/internal/ratelimit"
	internalsettings "github.com/router-for-me/ReportStudio/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testToken = "operator-token"

func setupAdmin(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "admin-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() { internalsettings.StoreDBConfig(time.Time{}, nil) })

	r := gin.New()
	RegisterAdminRoutes(r, conn, testToken)
	return r, conn
}

func doAdmin(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAdminRoutes_DisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAdminRoutes(r, &gorm.DB{}, "  ")
	assert.Empty(t, r.Routes())
}

func TestAdminAuth_RejectsBadToken(t *testing.T) {
	r, _ := setupAdmin(t)

	req := httptest.NewRequest(http.MethodGet, "/v0/admin/settings", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v0/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSettings_PutRefreshesTierLimit(t *testing.T) {
	r, _ := setupAdmin(t)

	rec := doAdmin(r, http.MethodPut, "/v0/admin/settings/"+internalsettings.APILimitPremiumKey, gin.H{"value": 2500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2500, internalsettings.TierLimit(models.TierPremium))

	rec = doAdmin(r, http.MethodGet, "/v0/admin/settings/"+internalsettings.APILimitPremiumKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.JSONEq(t, "2500", string(got.Value))

	rec = doAdmin(r, http.MethodGet, "/v0/admin/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), internalsettings.APILimitFreeKey)
}

func TestSettings_PutValidatesValues(t *testing.T) {
	r, _ := setupAdmin(t)

	cases := []struct {
		key   string
		value any
	}{
		{internalsettings.APILimitFreeKey, 0},
		{internalsettings.APILimitFreeKey, "many"},
		{internalsettings.RateLimitKey, -1},
		{internalsettings.RateLimitPremiumKey, "fast"},
		{internalsettings.RateLimitRedisEnabledKey, "sometimes"},
		{internalsettings.RateLimitRedisAddrKey, 6379},
	}
	for _, tc := range cases {
		rec := doAdmin(r, http.MethodPut, "/v0/admin/settings/"+tc.key, gin.H{"value": tc.value})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s=%v", tc.key, tc.value)
	}

	rec := doAdmin(r, http.MethodPut, "/v0/admin/settings/"+internalsettings.RateLimitKey, gin.H{"value": 20})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSettings_PutTierRateReachesLimiter(t *testing.T) {
	r, _ := setupAdmin(t)

	rec := doAdmin(r, http.MethodPut, "/v0/admin/settings/"+internalsettings.RateLimitPremiumKey, gin.H{"value": "40"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doAdmin(r, http.MethodPut, "/v0/admin/settings/"+internalsettings.RateLimitRedisEnabledKey, gin.H{"value": "off"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cfg := ratelimit.LoadSettingsConfig()
	assert.Equal(t, 40, cfg.RateFor(models.TierPremium))
	assert.Equal(t, internalsettings.DefaultRateLimit, cfg.RateFor(models.TierFree))
	assert.False(t, cfg.Redis.Enabled)
}

func TestSettings_Delete(t *testing.T) {
	r, _ := setupAdmin(t)

	rec := doAdmin(r, http.MethodDelete, "/v0/admin/settings/"+internalsettings.SiteNameKey, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAdmin(r, http.MethodDelete, "/v0/admin/settings/"+internalsettings.SiteNameKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers_ListAndUpdateTier(t *testing.T) {
	r, conn := setupAdmin(t)

	alice := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash", APIUsage: 100, APILimit: 100}
	bob := &models.User{Username: "bob", Email: "bob@example.com", Password: "hash", APILimit: 100}
	require.NoError(t, conn.Create(alice).Error)
	require.NoError(t, conn.Create(bob).Error)

	rec := doAdmin(r, http.MethodGet, "/v0/admin/users?search=ALI", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users []map[string]any `json:"users"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Users, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, "alice", list.Users[0]["username"])
	assert.NotContains(t, list.Users[0], "password")

	rec = doAdmin(r, http.MethodPut, "/v0/admin/users/"+alice.ID+"/tier", gin.H{"tier": "enterprise", "reset_usage": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.User
	require.NoError(t, conn.First(&updated, "id = ?", alice.ID).Error)
	assert.Equal(t, models.TierEnterprise, updated.SubscriptionTier)
	assert.Equal(t, internalsettings.DefaultAPILimitEnterprise, updated.APILimit)
	assert.Equal(t, 0, updated.APIUsage)

	rec = doAdmin(r, http.MethodPut, "/v0/admin/users/"+alice.ID+"/tier", gin.H{"tier": "gold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAdmin(r, http.MethodGet, "/v0/admin/users?tier=enterprise", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
}

func TestUsers_ResetUsageAndNotFound(t *testing.T) {
	r, conn := setupAdmin(t)

	user := &models.User{Username: "carol", Email: "carol@example.com", Password: "hash", APIUsage: 42, APILimit: 100}
	require.NoError(t, conn.Create(user).Error)

	rec := doAdmin(r, http.MethodPost, "/v0/admin/users/"+user.ID+"/reset-usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, 0, reloaded.APIUsage)

	rec = doAdmin(r, http.MethodGet, "/v0/admin/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
