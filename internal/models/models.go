package models

import "time"

// Post status values. The admin editor only ever writes these two.
const (
	StatusPublished = 1
	StatusDraft     = 2
)

// Notification types.
const (
	NotifyNewPost     = "new_post"
	NotifyLikePost    = "like_post"
	NotifyCommentPost = "comment_post"
)

// User is both the credential record and the public profile. The ID is an
// opaque UUID string so it can survive a move to an external identity
// provider without renumbering.
type User struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Name         string    `gorm:"not null" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	Bio          string    `json:"bio"`
	ProfilePic   string    `json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at"`
}

type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Post struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Content     string    `gorm:"type:text" json:"content"`
	Image       string    `json:"image"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`
	UserID      string    `gorm:"not null;size:36;index" json:"user_id"`
	StatusID    int       `gorm:"not null;default:2" json:"status_id"`
	Date        time.Time `json:"date"`
	LikesCount  int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Like records one user liking one post. The composite unique index makes a
// concurrent double-toggle lose instead of inserting a duplicate row.
type Like struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    string    `gorm:"not null;size:36;uniqueIndex:idx_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      string    `gorm:"not null;size:36;index" json:"user_id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	CommentText string    `gorm:"not null;type:text" json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification rows are written only by the fan-out path and mutated only to
// flip IsRead.
type Notification struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserToNotifyID string    `gorm:"not null;size:36;index" json:"user_to_notify_id"`
	ActorID        string    `gorm:"not null;size:36" json:"actor_id"`
	Type           string    `gorm:"not null;size:30" json:"type"`
	PostID         uint      `gorm:"not null" json:"post_id"`
	IsRead         bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
