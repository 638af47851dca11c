package handlers

import (
	"blog/api/forms"
	"blog/api/middleware"
	"blog/services"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type postFormPage struct {
	Form   forms.Descriptor `json:"form"`
	IsEdit bool             `json:"is_edit"`
	PostID int64            `json:"post_id,omitempty"`
}

// renderPostForm отдает форму поста со списком групп; postID != 0 означает редактирование
func (h *Handler) renderPostForm(c *gin.Context, status int, form forms.PostForm, errs forms.Errors, postID int64) {
	descriptor, err := h.Forms.DescribePost(c.Request.Context(), form, errs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, postFormPage{Form: descriptor, IsEdit: postID != 0, PostID: postID})
}

// Index - главная страница, все посты
func (h *Handler) Index(c *gin.Context) {
	page, err := h.Feed.IndexFeed(c.Request.Context(), c.Query("page"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GroupPosts(c *gin.Context) {
	page, err := h.Feed.GroupFeed(c.Request.Context(), c.Param("slug"), c.Query("page"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) Profile(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	page, err := h.Feed.ProfileFeed(c.Request.Context(), c.Param("username"), viewer, c.Query("page"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) PostDetail(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	detail, err := h.Feed.PostDetail(c.Request.Context(), postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// PostCreate: GET отдает пустую форму, POST создает пост и ведет в профиль автора
func (h *Handler) PostCreate(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		h.renderPostForm(c, http.StatusOK, forms.PostForm{}, nil, 0)
		return
	}

	user := middleware.CurrentUser(c)
	form, input, errs, err := h.Forms.BindPost(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !errs.Valid() {
		h.renderPostForm(c, http.StatusBadRequest, form, errs, 0)
		return
	}

	started := time.Now()
	_, err = h.Posts.Create(c.Request.Context(), user, input)
	middleware.RecordOperation("post_create", started, err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, services.ProfileURL(user.Username))
}

// PostEdit - редактировать пост может только автор, остальных ведем на страницу поста
func (h *Handler) PostEdit(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	post, err := h.Store.FindPost(ctx, postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if post.AuthorID != user.ID {
		c.Redirect(http.StatusFound, services.PostURL(postID))
		return
	}

	if c.Request.Method != http.MethodPost {
		h.renderPostForm(c, http.StatusOK, forms.PostFormFrom(post), nil, postID)
		return
	}

	form, input, errs, err := h.Forms.BindPost(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !errs.Valid() {
		h.renderPostForm(c, http.StatusBadRequest, form, errs, postID)
		return
	}

	started := time.Now()
	_, err = h.Posts.Edit(ctx, user, postID, input)
	middleware.RecordOperation("post_edit", started, err)
	if err != nil && !errors.Is(err, services.ErrForbidden) {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, services.PostURL(postID))
}

// AddComment всегда возвращает на страницу поста, невалидный комментарий просто не сохраняется
func (h *Handler) AddComment(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.Store.FindPost(ctx, postID); err != nil {
		h.fail(c, err)
		return
	}

	if c.Request.Method == http.MethodPost {
		form, errs := h.Forms.BindComment(c)
		if errs.Valid() {
			started := time.Now()
			_, err := h.Posts.AddComment(ctx, middleware.CurrentUser(c), postID, form.Text)
			middleware.RecordOperation("comment_create", started, err)
			if err != nil {
				h.fail(c, err)
				return
			}
		}
	}
	c.Redirect(http.StatusFound, services.PostURL(postID))
}
