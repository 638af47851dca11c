package handlers

import (
	"blog/api/middleware"
	"blog/services"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// FollowIndex - лента постов авторов, на которых подписан пользователь
func (h *Handler) FollowIndex(c *gin.Context) {
	page, err := h.Feed.FollowFeed(c.Request.Context(), middleware.CurrentUser(c), c.Query("page"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) ProfileFollow(c *gin.Context) {
	username := c.Param("username")
	started := time.Now()
	_, err := h.Follows.Follow(c.Request.Context(), middleware.CurrentUser(c), username)
	middleware.RecordOperation("follow", started, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, services.ProfileURL(username))
}

func (h *Handler) ProfileUnfollow(c *gin.Context) {
	username := c.Param("username")
	started := time.Now()
	_, err := h.Follows.Unfollow(c.Request.Context(), middleware.CurrentUser(c), username)
	middleware.RecordOperation("unfollow", started, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, services.ProfileURL(username))
}
