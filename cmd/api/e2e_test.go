package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/services"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/stats"
)

type createResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupTestDB(t *testing.T) *sqlx.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envOr("DB_USER", "kanso_user"),
		envOr("DB_PASSWORD", "secret"),
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_NAME", "kanso_db"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := repository.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	require.NoError(t, repository.Migrate(context.Background(), db, repository.DialectPostgres))
	return db
}

func TestEndToEnd_HabitLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	defer db.Close()

	userRepo := repository.NewPostgresUserRepository(db)
	habitRepo := repository.NewPostgresHabitRepository(db)

	statsService := services.NewStatsService(habitRepo, stats.NewEngine(time.UTC))
	tokenService := services.NewTokenService("e2e-secret", "kanso-e2e", time.Hour, userRepo)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:  adapterHTTP.NewAuthHandler(services.NewAuthService(userRepo), tokenService),
		HabitHandler: adapterHTTP.NewHabitHandler(services.NewHabitService(habitRepo, nil, time.UTC), time.UTC),
		StatsHandler: adapterHTTP.NewStatsHandler(statsService),
		TokenService: tokenService,
		DB:           db,
		StartTime:    time.Now(),
	})

	send := func(method, path, token, body string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	suffix := uuid.NewString()[:8]
	var token, habitID string

	t.Run("1. Register", func(t *testing.T) {
		payload := fmt.Sprintf(`{"username": "e2e_%s", "email": "e2e_%s@kanso.app", "password": "secret123"}`, suffix, suffix)
		w := send(http.MethodPost, "/api/v1/auth/register", "", payload)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		token = resp.Token
		require.NotEmpty(t, token)
	})

	t.Run("2. Create Habit", func(t *testing.T) {
		w := send(http.MethodPost, "/api/v1/habits", token, `{"name": "Morning Run", "frequency": "daily"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp createResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Morning Run", resp.Name)
		habitID = resp.ID
	})

	t.Run("3. Update Habit", func(t *testing.T) {
		require.NotEmpty(t, habitID, "Create step failed, cannot update")

		w := send(http.MethodPut, "/api/v1/habits/"+habitID, token, `{"name": "Evening Run"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Evening Run")
	})

	t.Run("4. Track Completions", func(t *testing.T) {
		now := time.Now().UTC()
		for _, d := range []time.Time{now.AddDate(0, 0, -1), now} {
			w := send(http.MethodPost, "/api/v1/habits/"+habitID+"/track", token,
				fmt.Sprintf(`{"date": %q}`, d.Format(time.RFC3339)))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}

		w := send(http.MethodPost, "/api/v1/habits/"+habitID+"/track", token,
			fmt.Sprintf(`{"date": %q}`, now.Format(time.DateOnly)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("5. Statistics", func(t *testing.T) {
		w := send(http.MethodGet, "/api/v1/habits/statistics", token, "")
		require.Equal(t, http.StatusOK, w.Code)

		var result []stats.HabitStatistics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		require.Len(t, result, 1)
		assert.Equal(t, 2, result[0].TotalCompletions)
		assert.Equal(t, 2, result[0].CurrentStreak)
		assert.Equal(t, float64(100), result[0].CompletionRate)
	})

	t.Run("6. Delete Habit", func(t *testing.T) {
		w := send(http.MethodDelete, "/api/v1/habits/"+habitID, token, "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = send(http.MethodGet, "/api/v1/habits", token, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), habitID)
	})

	t.Run("7. Validation Error", func(t *testing.T) {
		w := send(http.MethodPost, "/api/v1/habits", token, `{"description": "no name"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("8. Auth Error", func(t *testing.T) {
		w := send(http.MethodGet, "/api/v1/habits", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
