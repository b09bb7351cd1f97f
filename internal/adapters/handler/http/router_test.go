package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/services"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/stats"
)

func setupFullRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := repository.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(ctx, db, repository.DialectSQLite))

	userRepo := repository.NewSQLiteUserRepository(db)
	habitRepo := repository.NewSQLiteHabitRepository(db)

	tokenService := services.NewTokenService("router-secret", "router-test", time.Hour, userRepo)
	habitService := services.NewHabitService(habitRepo, nil, time.UTC)
	statsService := services.NewStatsService(habitRepo, stats.NewEngine(time.UTC))

	return adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(services.NewAuthService(userRepo), tokenService),
		HabitHandler: adapterHTTP.NewHabitHandler(habitService, time.UTC),
		StatsHandler: adapterHTTP.NewStatsHandler(statsService),
		TokenService: tokenService,
		DB:           db,
		StartTime:    time.Now(),
	})
}

func authed(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *gin.Engine, username, email string) string {
	t.Helper()
	w := authed(router, http.MethodPost, "/api/v1/auth/register", "",
		`{"username": "`+username+`", "email": "`+email+`", "password": "secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_HabitLifecycle(t *testing.T) {
	router := setupFullRouter(t)

	token := registerUser(t, router, "lifecycle", "lifecycle@kanso.app")

	t.Run("Duplicate registration is 409", func(t *testing.T) {
		w := authed(router, http.MethodPost, "/api/v1/auth/register", "",
			`{"username": "lifecycle2", "email": "lifecycle@kanso.app", "password": "secret123"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Login returns a fresh token", func(t *testing.T) {
		w := authed(router, http.MethodPost, "/api/v1/auth/login", "",
			`{"email": "lifecycle@kanso.app", "password": "secret123"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token"`)
	})

	t.Run("Protected routes need a token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, authed(router, http.MethodGet, "/api/v1/habits", "", "").Code)
		assert.Equal(t, http.StatusUnauthorized, authed(router, http.MethodGet, "/api/v1/habits/statistics", "garbage", "").Code)
	})

	var habitID string
	t.Run("Create", func(t *testing.T) {
		w := authed(router, http.MethodPost, "/api/v1/habits", token, `{"name": "Morning Run"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		habitID = created.ID
		require.NotEmpty(t, habitID)
	})

	t.Run("Track today and yesterday", func(t *testing.T) {
		now := time.Now().UTC()
		for _, d := range []time.Time{now.AddDate(0, 0, -1), now} {
			w := authed(router, http.MethodPost, "/api/v1/habits/"+habitID+"/track", token,
				`{"date": "`+d.Format(time.RFC3339)+`"}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
	})

	t.Run("Statistics reflect the completions", func(t *testing.T) {
		w := authed(router, http.MethodGet, "/api/v1/habits/statistics", token, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result []stats.HabitStatistics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Len(t, result, 1)
		assert.Equal(t, habitID, result[0].HabitID)
		assert.Equal(t, 2, result[0].TotalCompletions)
		assert.Equal(t, 2, result[0].CurrentStreak)
		assert.Equal(t, float64(100), result[0].CompletionRate)
	})

	t.Run("Other users see nothing", func(t *testing.T) {
		other := registerUser(t, router, "stranger", "stranger@kanso.app")

		assert.Equal(t, http.StatusNotFound, authed(router, http.MethodGet, "/api/v1/habits/"+habitID, other, "").Code)

		w := authed(router, http.MethodGet, "/api/v1/habits/statistics", other, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("History and delete", func(t *testing.T) {
		w := authed(router, http.MethodGet, "/api/v1/habits/"+habitID+"/history", token, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"habit":"Morning Run"`)

		assert.Equal(t, http.StatusOK, authed(router, http.MethodDelete, "/api/v1/habits/"+habitID, token, "").Code)
		assert.Equal(t, http.StatusNotFound, authed(router, http.MethodGet, "/api/v1/habits/"+habitID, token, "").Code)
	})
}

func TestRouter_HealthAndDocs(t *testing.T) {
	router := setupFullRouter(t)

	w := authed(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)

	w = authed(router, http.MethodGet, "/api-docs/doc.json", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/habits/statistics")
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := setupFullRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/habits", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
