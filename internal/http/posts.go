package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/phurits/brewpress/internal/models"
)

const defaultPageSize = 6

type CreatePostInput struct {
	Title       *string `json:"title"`
	Image       *string `json:"image"`
	CategoryID  *uint   `json:"category_id"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	StatusID    *int    `json:"status_id"`
}

// validateCreatePost returns the first violation, empty string when valid.
func validateCreatePost(in CreatePostInput) string {
	switch {
	case in.Title == nil || *in.Title == "":
		return "Title is required"
	case in.Image == nil || *in.Image == "":
		return "Image is required"
	case in.CategoryID == nil:
		return "Category_id is required"
	case in.Description == nil || *in.Description == "":
		return "Description is required"
	case in.Content == nil || *in.Content == "":
		return "Content is required"
	case in.StatusID == nil:
		return "Status_id is required"
	}
	return ""
}

// ListPosts serves the public article list: published only.
func (e *Env) ListPosts(c *gin.Context) {
	e.listPosts(c, false)
}

// ListPostsAdmin includes drafts. Admin-gated in routes.go.
func (e *Env) ListPostsAdmin(c *gin.Context) {
	e.listPosts(c, true)
}

func (e *Env) listPosts(c *gin.Context, adminView bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	category := c.Query("category")
	keyword := c.Query("keyword")

	query := e.DB.Model(&models.Post{})
	if !adminView {
		query = query.Where("posts.status_id = ?", models.StatusPublished)
	}
	if category != "" {
		query = query.
			Joins("JOIN categories ON categories.id = posts.category_id").
			Where("categories.name = ?", category)
	}
	if keyword != "" {
		pattern := "%" + strings.ToLower(keyword) + "%"
		query = query.Where(
			"LOWER(posts.title) LIKE ? OR LOWER(posts.description) LIKE ? OR LOWER(posts.content) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Error counting posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	var posts []models.Post
	offset := (page - 1) * limit
	if err := query.Select("posts.*").
		Order("posts.date desc").Order("posts.id desc").
		Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		log.Printf("Error fetching posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	var nextPage *int
	if page < totalPages {
		next := page + 1
		nextPage = &next
	}

	c.JSON(http.StatusOK, gin.H{
		"totalPosts":  total,
		"totalPages":  totalPages,
		"currentPage": page,
		"limit":       limit,
		"posts":       posts,
		"nextPage":    nextPage,
	})
}

// GetPost returns one post with its author's display info joined in.
func (e *Env) GetPost(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}

	var post models.Post
	if err := e.DB.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Server could not find a requested post"})
			return
		}
		log.Printf("Error fetching post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var author models.User
	if err := e.DB.Select("id", "name", "bio", "profile_pic").
		First(&author, "id = ?", post.UserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error fetching post author: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            post.ID,
		"title":         post.Title,
		"description":   post.Description,
		"content":       post.Content,
		"image":         post.Image,
		"category_id":   post.CategoryID,
		"status_id":     post.StatusID,
		"date":          post.Date,
		"likes_count":   post.LikesCount,
		"author":        author.Name,
		"author_bio":    author.Bio,
		"author_avatar": author.ProfilePic,
		"author_id":     author.ID,
	})
}

func (e *Env) CreatePost(c *gin.Context) {
	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Request body is required"})
		return
	}
	if msg := validateCreatePost(input); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	user := currentUser(c)
	post := models.Post{
		Title:       *input.Title,
		Image:       *input.Image,
		CategoryID:  *input.CategoryID,
		Description: *input.Description,
		Content:     *input.Content,
		StatusID:    *input.StatusID,
		UserID:      user.ID,
		Date:        time.Now().UTC(),
		LikesCount:  0,
	}
	if err := e.DB.Create(&post).Error; err != nil {
		log.Printf("Error creating post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	// Publishing straight away as an admin notifies every reader account.
	// The fan-out is a side effect: its failure never fails the create.
	if post.StatusID == models.StatusPublished && user.Role == "admin" {
		if err := e.Notify.NewPost(post.ID, user.ID); err != nil {
			log.Printf("Failed to send new post notifications: %v", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"data":    post,
	})
}

type UpdatePostInput struct {
	Title       *string `json:"title"`
	Image       *string `json:"image"`
	CategoryID  *uint   `json:"category_id"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	StatusID    *int    `json:"status_id"`
}

func (e *Env) UpdatePost(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	var input UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Request body is required"})
		return
	}

	var existing models.Post
	if err := e.DB.First(&existing, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Server could not find a requested post to update"})
			return
		}
		log.Printf("Error fetching post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Image != nil {
		updates["image"] = *input.Image
	}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.StatusID != nil {
		updates["status_id"] = *input.StatusID
	}

	if len(updates) > 0 {
		if err := e.DB.Model(&models.Post{}).Where("id = ?", postID).Updates(updates).Error; err != nil {
			log.Printf("Error updating post: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
			return
		}
	}

	// Fan out only on the transition into published, and only for admins, so
	// repeated saves of an already-published post stay quiet.
	user := currentUser(c)
	if input.StatusID != nil &&
		*input.StatusID == models.StatusPublished &&
		existing.StatusID != models.StatusPublished &&
		user.Role == "admin" {
		if err := e.Notify.NewPost(existing.ID, existing.UserID); err != nil {
			log.Printf("Failed to send new post notifications: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Updated post successfully"})
}

func (e *Env) DeletePost(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}

	// Deleting an already-absent post is a no-op success.
	if err := e.DB.Delete(&models.Post{}, postID).Error; err != nil {
		log.Printf("Error deleting post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted post successfully"})
}
