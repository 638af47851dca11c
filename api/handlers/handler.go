package handlers

import (
	"blog/api/forms"
	"blog/services"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler собирает все зависимости HTTP-слоя
type Handler struct {
	Store   services.Store
	Feed    *services.FeedService
	Posts   *services.PostService
	Follows *services.FollowService
	Users   *services.UserService
	Forms   *forms.Validator
	Cache   services.PageCache
	Conns   *services.WSConnManager
}

type Deps struct {
	Store        services.Store
	Media        *services.MediaStore
	Events       services.PostEventPublisher
	Cache        services.PageCache
	Conns        *services.WSConnManager
	PageSize     int
	MaxImageSize int64
}

func NewHandler(deps Deps) *Handler {
	conns := deps.Conns
	if conns == nil {
		conns = services.NewWSConnManager()
	}
	return &Handler{
		Store:   deps.Store,
		Feed:    services.NewFeedService(deps.Store, deps.PageSize),
		Posts:   services.NewPostService(deps.Store, deps.Media, deps.Events),
		Follows: services.NewFollowService(deps.Store, conns),
		Users:   services.NewUserService(),
		Forms:   forms.NewValidator(deps.Store, deps.MaxImageSize),
		Cache:   deps.Cache,
		Conns:   conns,
	}
}

// fail переводит ошибку сервиса в HTTP-ответ
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func postIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return id, true
}

func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
