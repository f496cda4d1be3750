package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/phurits/brewpress/internal/auth"
	"github.com/phurits/brewpress/internal/models"
	"github.com/phurits/brewpress/internal/notify"
)

// Env holds the handlers' shared dependencies.
type Env struct {
	DB     *gorm.DB
	Tokens *auth.Tokens
	Notify *notify.Service
}

// uintParam parses a numeric path parameter. The second return is false when
// the caller should bail out; a 400 has already been written.
func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// profileJSON is the identity payload shared by get-user, register and
// update-profile responses.
func profileJSON(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"name":       user.Name,
		"role":       user.Role,
		"profilePic": user.ProfilePic,
		"bio":        user.Bio,
	}
}
