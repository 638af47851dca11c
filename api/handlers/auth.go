package handlers

import (
	"blog/services"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	Username  string `json:"username" form:"username" binding:"required,max=150"`
	Password  string `json:"password" form:"password" binding:"required,min=6"`
	FirstName string `json:"first_name" form:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" form:"last_name" binding:"max=150"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginResponse struct {
	Status   string `json:"status"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Next     string `json:"next,omitempty"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.Users.Register(c.Request.Context(), services.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{
				"username": []string{"Пользователь с таким именем уже существует."},
			}})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

// LoginForm - сюда ведет редирект для неавторизованных пользователей
func (h *Handler) LoginForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"form": gin.H{"fields": []string{"username", "password"}},
		"next": c.Query("next"),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, user, err := h.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.fail(c, err)
		return
	}

	next := c.Query("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = ""
	}
	c.JSON(http.StatusOK, LoginResponse{
		Status:   "ok",
		UserID:   user.ID,
		Username: user.Username,
		Token:    token,
		Next:     next,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is empty"})
		return
	}
	if err := h.Users.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
