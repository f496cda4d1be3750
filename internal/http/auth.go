package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/phurits/brewpress/internal/auth"
	"github.com/phurits/brewpress/internal/models"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UpdateProfileInput struct {
	Name       *string `json:"name"`
	Username   *string `json:"username"`
	Bio        *string `json:"bio"`
	ProfilePic *string `json:"profile_pic"`
}

// validateRegister returns the first violation, empty string when valid.
func validateRegister(in RegisterInput) string {
	switch {
	case in.Email == "":
		return "Email is required"
	case !strings.Contains(in.Email, "@"):
		return "Email must be a valid email address"
	case in.Password == "":
		return "Password is required"
	case len(in.Password) < 6:
		return "Password must be at least 6 characters"
	case in.Username == "":
		return "Username is required"
	case len(in.Username) < 3:
		return "Username must be at least 3 characters"
	case in.Name == "":
		return "Name is required"
	case len(in.Name) < 2:
		return "Name must be at least 2 characters"
	}
	return ""
}

func (e *Env) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
		return
	}
	if msg := validateRegister(input); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	// Pre-checks mirror the unique indexes so the common case gets a clean
	// message instead of a driver error.
	var count int64
	if err := e.DB.Model(&models.User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		log.Printf("Error checking username: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during registration"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This username is already taken"})
		return
	}
	if err := e.DB.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		log.Printf("Error checking email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during registration"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during registration"})
		return
	}

	user := models.User{
		ID:           auth.NewUserID(),
		Email:        input.Email,
		Username:     input.Username,
		Name:         input.Name,
		PasswordHash: hash,
		Role:         "user",
	}
	if err := e.DB.Create(&user).Error; err != nil {
		log.Printf("Error creating user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user profile"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    profileJSON(user),
	})
}

func (e *Env) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
		return
	}
	switch {
	case input.Email == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	case !strings.Contains(input.Email, "@"):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email must be a valid email address"})
		return
	case input.Password == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
		return
	}

	var user models.User
	err := e.DB.First(&user, "email = ?", input.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(input.Password, user.PasswordHash)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your password is incorrect or this email doesn't exist"})
		return
	}
	if err != nil {
		log.Printf("Error during login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		return
	}

	token, err := e.Tokens.Mint(user.ID)
	if err != nil {
		log.Printf("Error minting token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Signed in successfully",
		"access_token": token,
	})
}

func (e *Env) GetUser(c *gin.Context) {
	c.JSON(http.StatusOK, profileJSON(currentUser(c)))
}

func (e *Env) UpdateProfile(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
		return
	}
	user := currentUser(c)

	if input.Username != nil && *input.Username != "" {
		var count int64
		if err := e.DB.Model(&models.User{}).
			Where("username = ? AND id <> ?", *input.Username, user.ID).
			Count(&count).Error; err != nil {
			log.Printf("Error checking username: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This username is already taken"})
			return
		}
	}

	updates := map[string]any{}
	if input.Name != nil && *input.Name != "" {
		updates["name"] = *input.Name
	}
	if input.Username != nil && *input.Username != "" {
		updates["username"] = *input.Username
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.ProfilePic != nil && *input.ProfilePic != "" {
		updates["profile_pic"] = *input.ProfilePic
	}

	if len(updates) > 0 {
		if err := e.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			log.Printf("Error updating profile: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	var updated models.User
	if err := e.DB.First(&updated, "id = ?", user.ID).Error; err != nil {
		log.Printf("Error reloading profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    profileJSON(updated),
	})
}

func (e *Env) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
		return
	}
	switch {
	case input.CurrentPassword == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required"})
		return
	case input.NewPassword == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password is required"})
		return
	case len(input.NewPassword) < 6:
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 6 characters"})
		return
	}

	user := currentUser(c)

	// Re-prove ownership with the current password before touching the hash.
	// A wrong current password is a 400, distinct from the 401 of a bad token.
	if !auth.CheckPassword(input.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if err := e.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("password_hash", hash).Error; err != nil {
		log.Printf("Error updating password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
