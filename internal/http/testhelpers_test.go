package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phurits/brewpress/internal/auth"
	"github.com/phurits/brewpress/internal/models"
	"github.com/phurits/brewpress/internal/ws"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.Tokens
}

// newTestApp wires the full router against a fresh in-memory database.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection, or every pooled conn would get its own empty :memory: DB.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
	))

	tokens, err := auth.NewTokens("test-secret", time.Hour, "")
	require.NoError(t, err)

	hub := ws.NewHub()
	go hub.Run()

	router := gin.New()
	SetupRoutes(router, db, tokens, hub)

	return &testApp{router: router, db: db, tokens: tokens}
}

// seedUser inserts a user row directly and mints a token for it.
func (a *testApp) seedUser(t *testing.T, username, role string) (models.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		ID:           auth.NewUserID(),
		Email:        username + "@example.com",
		Username:     username,
		Name:         "Test " + username,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, a.db.Create(&user).Error)

	token, err := a.tokens.Mint(user.ID)
	require.NoError(t, err)
	return user, token
}

// seedCategory inserts a category row directly.
func (a *testApp) seedCategory(t *testing.T, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name}
	require.NoError(t, a.db.Create(&category).Error)
	return category
}

// seedPost inserts a post row directly, with the date staggered by age so
// ordering assertions are deterministic.
func (a *testApp) seedPost(t *testing.T, author models.User, category models.Category, title string, status int, age time.Duration) models.Post {
	t.Helper()
	post := models.Post{
		Title:       title,
		Description: "About " + title,
		Content:     "Long form content for " + title,
		Image:       "https://img.example.com/" + title,
		CategoryID:  category.ID,
		UserID:      author.ID,
		StatusID:    status,
		Date:        time.Now().UTC().Add(-age),
	}
	require.NoError(t, a.db.Create(&post).Error)
	return post
}

// request performs one HTTP call against the router. A non-empty token is
// sent as a bearer header; a non-nil body is marshalled to JSON.
func (a *testApp) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals a JSON response body into a generic map.
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// countNotifications counts rows matching the given type for a recipient.
func (a *testApp) countNotifications(t *testing.T, recipientID, kind string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, a.db.Model(&models.Notification{}).
		Where("user_to_notify_id = ? AND type = ?", recipientID, kind).
		Count(&count).Error)
	return count
}

func postPath(id uint, suffix string) string {
	return fmt.Sprintf("/posts/%d%s", id, suffix)
}

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}
