package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (e *Env) ListNotifications(c *gin.Context) {
	user := currentUser(c)
	notifications, err := e.Notify.ListForUser(user.ID)
	if err != nil {
		log.Printf("Error fetching notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationRead flips one notification. The update is scoped to the
// caller, so a miss can mean "absent" or "someone else's" — both 404, to
// avoid leaking other users' notification ids.
func (e *Env) MarkNotificationRead(c *gin.Context) {
	id, ok := uintParam(c, "notificationId")
	if !ok {
		return
	}
	user := currentUser(c)

	updated, err := e.Notify.MarkRead(id, user.ID)
	if err != nil {
		log.Printf("Error marking notification as read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found or user not authorized."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read."})
}

func (e *Env) MarkAllNotificationsRead(c *gin.Context) {
	user := currentUser(c)
	if err := e.Notify.MarkAllRead(user.ID); err != nil {
		log.Printf("Error marking all notifications as read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read."})
}
