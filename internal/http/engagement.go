package http

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/phurits/brewpress/internal/models"
)

var errPostNotFound = errors.New("post not found")

type CommentInput struct {
	Content string `json:"content"`
}

// ToggleLike flips the caller's like on a post. The like row and the
// denormalized likes_count move together inside one transaction, and the
// counter moves by an atomic SQL expression rather than a value computed
// from an earlier read, so concurrent toggles by different users cannot
// clobber each other's increments.
func (e *Env) ToggleLike(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	user := currentUser(c)

	var (
		liked    bool
		newCount int
		authorID string
	)
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "user_id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPostNotFound
			}
			return err
		}
		authorID = post.UserID

		var existing models.Like
		err := tx.Where("user_id = ? AND post_id = ?", user.ID, postID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			// Decrement in SQL, floored at zero.
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				Update("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := models.Like{UserID: user.ID, PostID: postID, CreatedAt: time.Now().UTC()}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				Update("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}
		if err := tx.Select("likes_count").First(&post, postID).Error; err != nil {
			return err
		}
		newCount = post.LikesCount
		return nil
	})
	if err != nil {
		if errors.Is(err, errPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("Error in like transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process like"})
		return
	}

	if !liked {
		c.JSON(http.StatusOK, gin.H{
			"message":   "Like removed successfully",
			"action":    "unliked",
			"likeCount": newCount,
		})
		return
	}

	// Best-effort: a failed notification never fails the like.
	if err := e.Notify.Like(postID, user.ID, authorID); err != nil {
		log.Printf("Error creating like notification: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Like added successfully",
		"action":    "liked",
		"likeCount": newCount,
	})
}

// LikeStatus reports the cached counter plus whether the caller has liked.
func (e *Env) LikeStatus(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	user := currentUser(c)

	var post models.Post
	if err := e.DB.Select("likes_count").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("Error fetching post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var count int64
	if err := e.DB.Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", user.ID, postID).
		Count(&count).Error; err != nil {
		log.Printf("Error checking like: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likeCount": post.LikesCount,
		"isLiked":   count > 0,
	})
}

// ListComments returns a post's comments newest-first, with author display
// info joined at read time.
func (e *Env) ListComments(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}

	type commentRow struct {
		ID          uint
		CommentText string
		CreatedAt   time.Time
		Name        string
		ProfilePic  string
	}
	var rows []commentRow
	if err := e.DB.Model(&models.Comment{}).
		Select("comments.id, comments.comment_text, comments.created_at, users.name, users.profile_pic").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.created_at desc").Order("comments.id desc").
		Scan(&rows).Error; err != nil {
		log.Printf("Error fetching comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	comments := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, gin.H{
			"id":            row.ID,
			"content":       row.CommentText,
			"created_at":    row.CreatedAt,
			"author_name":   row.Name,
			"author_avatar": row.ProfilePic,
		})
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// AddComment inserts a comment and answers with the caller's display info so
// clients can render it without a refetch.
func (e *Env) AddComment(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	var post models.Post
	if err := e.DB.Select("id", "user_id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("Error fetching post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := currentUser(c)
	comment := models.Comment{
		UserID:      user.ID,
		PostID:      postID,
		CommentText: content,
	}
	if err := e.DB.Create(&comment).Error; err != nil {
		log.Printf("Error creating comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	// Best-effort: a failed notification never fails the comment.
	if err := e.Notify.Comment(postID, user.ID, post.UserID); err != nil {
		log.Printf("Error creating comment notification: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment added successfully",
		"comment": gin.H{
			"id":            comment.ID,
			"content":       comment.CommentText,
			"created_at":    comment.CreatedAt,
			"author_name":   user.Name,
			"author_avatar": user.ProfilePic,
		},
	})
}

// DeleteComment removes the caller's own comment. Someone else's comment is a
// 403 and stays intact; an already-gone comment is a no-op success.
func (e *Env) DeleteComment(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "commentId")
	if !ok {
		return
	}
	user := currentUser(c)

	var comment models.Comment
	err := e.DB.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
		return
	}
	if err != nil {
		log.Printf("Error fetching comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if comment.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this comment"})
		return
	}

	if err := e.DB.Delete(&comment).Error; err != nil {
		log.Printf("Error deleting comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
