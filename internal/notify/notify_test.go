package notify

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phurits/brewpress/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Notification{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, name, role string) models.User {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        id + "@example.com",
		Username:     id,
		Name:         name,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// recorder captures live pushes without a real websocket.
type recorder struct {
	sent map[string]int
}

func (r *recorder) Send(userID string, _ []byte) {
	if r.sent == nil {
		r.sent = make(map[string]int)
	}
	r.sent[userID]++
}

func TestNewPostFansOutToReadersOnly(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin-1", "Boss", "admin")
	seedUser(t, db, "user-1", "Alice", "user")
	seedUser(t, db, "user-2", "Bob", "user")
	seedUser(t, db, "admin-2", "Other Admin", "admin")

	rec := &recorder{}
	svc := NewService(db, rec)
	require.NoError(t, svc.NewPost(42, admin.ID))

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, models.NotifyNewPost, row.Type)
		require.Equal(t, admin.ID, row.ActorID)
		require.EqualValues(t, 42, row.PostID)
		require.False(t, row.IsRead)
	}
	require.Equal(t, 1, rec.sent["user-1"])
	require.Equal(t, 1, rec.sent["user-2"])
	require.Zero(t, rec.sent["admin-2"])
}

func TestNewPostNoRecipients(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin-1", "Boss", "admin")

	svc := NewService(db, nil)
	require.NoError(t, svc.NewPost(42, admin.ID))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSelfActionSuppressed(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "user-1", "Alice", "user")

	svc := NewService(db, nil)
	require.NoError(t, svc.Like(42, user.ID, user.ID))
	require.NoError(t, svc.Comment(42, user.ID, user.ID))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestListForUserJoinsActorAndPost(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author-1", "Writer", "admin")
	actor := seedUser(t, db, "user-1", "Alice", "user")
	post := models.Post{Title: "Espresso 101", CategoryID: 1, UserID: author.ID, StatusID: models.StatusPublished}
	require.NoError(t, db.Create(&post).Error)

	svc := NewService(db, nil)
	require.NoError(t, svc.Like(post.ID, actor.ID, author.ID))

	views, err := svc.ListForUser(author.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, models.NotifyLikePost, views[0].Type)
	require.Equal(t, "Alice", views[0].Actor.Name)
	require.Equal(t, "Espresso 101", views[0].Post.Title)

	// The actor's own feed is empty.
	views, err = svc.ListForUser(actor.ID)
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestListForUserSurvivesDeletedPost(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author-1", "Writer", "admin")
	actor := seedUser(t, db, "user-1", "Alice", "user")
	post := models.Post{Title: "Espresso 101", CategoryID: 1, UserID: author.ID, StatusID: models.StatusPublished}
	require.NoError(t, db.Create(&post).Error)

	svc := NewService(db, nil)
	require.NoError(t, svc.Like(post.ID, actor.ID, author.ID))
	require.NoError(t, db.Delete(&post).Error)

	// The notification row outlives its post; the joined post fields come
	// back zero-valued instead of dropping the row or erroring.
	views, err := svc.ListForUser(author.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "Alice", views[0].Actor.Name)
	require.Zero(t, views[0].Post.ID)
	require.Empty(t, views[0].Post.Title)
}

func TestMarkReadScoping(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author-1", "Writer", "admin")
	actor := seedUser(t, db, "user-1", "Alice", "user")

	svc := NewService(db, nil)
	require.NoError(t, svc.Like(42, actor.ID, author.ID))

	var row models.Notification
	require.NoError(t, db.First(&row).Error)

	// Someone else's id does not match.
	updated, err := svc.MarkRead(row.ID, actor.ID)
	require.NoError(t, err)
	require.False(t, updated)

	updated, err = svc.MarkRead(row.ID, author.ID)
	require.NoError(t, err)
	require.True(t, updated)

	require.NoError(t, db.First(&row, row.ID).Error)
	require.True(t, row.IsRead)
}

func TestMarkAllRead(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author-1", "Writer", "admin")
	a := seedUser(t, db, "user-1", "Alice", "user")
	b := seedUser(t, db, "user-2", "Bob", "user")

	svc := NewService(db, nil)
	require.NoError(t, svc.Like(42, a.ID, author.ID))
	require.NoError(t, svc.Comment(42, b.ID, author.ID))

	require.NoError(t, svc.MarkAllRead(author.ID))

	var unread int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_to_notify_id = ? AND is_read = ?", author.ID, false).
		Count(&unread).Error)
	require.Zero(t, unread)
}
