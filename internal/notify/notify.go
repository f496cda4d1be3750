package notify

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/phurits/brewpress/internal/models"
)

// Pusher delivers a payload to a connected user. Satisfied by ws.Hub; nil
// disables live push.
type Pusher interface {
	Send(userID string, payload []byte)
}

// Service writes notification rows and optionally pushes them live. Every
// write here is a best-effort side effect of some other operation: callers
// log the returned error and carry on.
type Service struct {
	db     *gorm.DB
	pusher Pusher
}

func NewService(db *gorm.DB, pusher Pusher) *Service {
	return &Service{db: db, pusher: pusher}
}

// Actor is the joined display info for the user who triggered a notification.
type Actor struct {
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

// PostRef is the joined reference to the post a notification is about.
type PostRef struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// View is one notification as returned to clients and pushed over the wire.
type View struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	Actor     Actor     `json:"actor"`
	Post      PostRef   `json:"post"`
}

// NewPost notifies every role=user account about a freshly published post.
// One bulk insert, one row per recipient, none for the author or admins.
func (s *Service) NewPost(postID uint, authorID string) error {
	var recipients []string
	if err := s.db.Model(&models.User{}).
		Where("role = ?", "user").
		Where("id <> ?", authorID).
		Pluck("id", &recipients).Error; err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		rows = append(rows, models.Notification{
			UserToNotifyID: id,
			ActorID:        authorID,
			Type:           models.NotifyNewPost,
			PostID:         postID,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		s.push(row)
	}
	return nil
}

// Like notifies a post's author that actorID liked it. Self-likes are
// suppressed.
func (s *Service) Like(postID uint, actorID, recipientID string) error {
	return s.single(models.NotifyLikePost, postID, actorID, recipientID)
}

// Comment notifies a post's author that actorID commented on it. Self-comments
// are suppressed.
func (s *Service) Comment(postID uint, actorID, recipientID string) error {
	return s.single(models.NotifyCommentPost, postID, actorID, recipientID)
}

func (s *Service) single(kind string, postID uint, actorID, recipientID string) error {
	if actorID == recipientID || recipientID == "" {
		return nil
	}
	row := models.Notification{
		UserToNotifyID: recipientID,
		ActorID:        actorID,
		Type:           kind,
		PostID:         postID,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return err
	}
	s.push(row)
	return nil
}

// ListForUser returns the user's notifications newest-first, with actor and
// post info joined in the same query. Left joins keep rows whose actor or
// post has since been deleted; their nested objects come back zero-valued.
func (s *Service) ListForUser(userID string) ([]View, error) {
	type notifRow struct {
		ID        uint
		CreatedAt time.Time
		Type      string
		IsRead    bool
		ActorName string
		ActorPic  string
		PostID    uint
		PostTitle string
	}
	var rows []notifRow
	if err := s.db.Model(&models.Notification{}).
		Select("notifications.id, notifications.created_at, notifications.type, notifications.is_read, "+
			"users.name AS actor_name, users.profile_pic AS actor_pic, "+
			"posts.id AS post_id, posts.title AS post_title").
		Joins("LEFT JOIN users ON users.id = notifications.actor_id").
		Joins("LEFT JOIN posts ON posts.id = notifications.post_id").
		Where("notifications.user_to_notify_id = ?", userID).
		Order("notifications.created_at desc").Order("notifications.id desc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, View{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			Type:      row.Type,
			IsRead:    row.IsRead,
			Actor:     Actor{Name: row.ActorName, ProfilePic: row.ActorPic},
			Post:      PostRef{ID: row.PostID, Title: row.PostTitle},
		})
	}
	return views, nil
}

// MarkRead flips is_read on one notification, scoped to its recipient.
// Returns false when no row matched (absent or someone else's).
func (s *Service) MarkRead(id uint, userID string) (bool, error) {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_to_notify_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkAllRead flips every unread notification for the user.
func (s *Service) MarkAllRead(userID string) error {
	return s.db.Model(&models.Notification{}).
		Where("user_to_notify_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// view joins actor and post display fields for one row. Misses (deleted
// actor/post) leave the nested objects zero-valued rather than failing.
func (s *Service) view(row models.Notification) View {
	v := View{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		Type:      row.Type,
		IsRead:    row.IsRead,
	}
	var actor models.User
	if err := s.db.Select("name", "profile_pic").First(&actor, "id = ?", row.ActorID).Error; err == nil {
		v.Actor = Actor{Name: actor.Name, ProfilePic: actor.ProfilePic}
	}
	var post models.Post
	if err := s.db.Select("id", "title").First(&post, row.PostID).Error; err == nil {
		v.Post = PostRef{ID: post.ID, Title: post.Title}
	}
	return v
}

func (s *Service) push(row models.Notification) {
	if s.pusher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type": "notification",
		"data": s.view(row),
	})
	if err != nil {
		log.Printf("Error marshalling notification push: %v", err)
		return
	}
	s.pusher.Send(row.UserToNotifyID, payload)
}
