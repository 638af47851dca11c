package services

import (
	"blog/models"
	"context"
	"fmt"
	"log"
	"strings"
)

// PostInput is a validated post form.
type PostInput struct {
	Text    string
	GroupID *int64
	Image   *Upload
}

type PostService struct {
	store  Store
	media  *MediaStore
	events PostEventPublisher
}

func NewPostService(store Store, media *MediaStore, events PostEventPublisher) *PostService {
	return &PostService{store: store, media: media, events: events}
}

func (ps *PostService) saveImage(upload *Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	if ps.media == nil {
		return "", fmt.Errorf("media storage is not configured")
	}
	return ps.media.Save(*upload)
}

func (ps *PostService) dropImage(path string) {
	if path == "" || ps.media == nil {
		return
	}
	if err := ps.media.Delete(path); err != nil {
		log.Printf("ERROR: failed to remove orphan image %s: %v", path, err)
	}
}

// Create сохраняет пост от имени author и уведомляет подписчиков
func (ps *PostService) Create(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	log.Printf("DEBUG: Create post called for userID=%d", author.ID)

	image, err := ps.saveImage(in.Image)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     strings.TrimSpace(in.Text),
		AuthorID: author.ID,
		GroupID:  in.GroupID,
		Image:    image,
	}
	if err := ps.store.CreatePost(ctx, post); err != nil {
		ps.dropImage(image)
		return nil, err
	}
	post.Author = *author
	log.Printf("DEBUG: Post created in DB with ID=%d", post.ID)

	ps.publish(ctx, post)
	return post, nil
}

func (ps *PostService) publish(ctx context.Context, post *models.Post) {
	if ps.events == nil {
		return
	}
	event := PostEvent{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Author:    post.Author.Username,
		Text:      post.Text,
		CreatedAt: post.CreatedAt,
	}
	if err := ps.events.PublishPostEvent(ctx, event); err != nil {
		log.Printf("ERROR: failed to publish post %d: %v", post.ID, err)
	}
}

// Edit заменяет текст и группу поста. Картинка меняется только если
// загружена новая. Редактировать может только автор.
func (ps *PostService) Edit(ctx context.Context, editor *models.User, postID int64, in PostInput) (*models.Post, error) {
	current, err := ps.store.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != editor.ID {
		return nil, fmt.Errorf("post %d: %w", postID, ErrForbidden)
	}

	image, err := ps.saveImage(in.Image)
	if err != nil {
		return nil, err
	}

	post, err := ps.store.UpdatePost(ctx, postID, func(post *models.Post) error {
		if post.AuthorID != editor.ID {
			return fmt.Errorf("post %d: %w", postID, ErrForbidden)
		}
		post.Text = strings.TrimSpace(in.Text)
		post.GroupID = in.GroupID
		if image != "" {
			post.Image = image
		}
		return nil
	})
	if err != nil {
		ps.dropImage(image)
		return nil, err
	}
	return post, nil
}

func (ps *PostService) AddComment(ctx context.Context, author *models.User, postID int64, text string) (*models.Comment, error) {
	post, err := ps.store.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{
		Text:     strings.TrimSpace(text),
		PostID:   post.ID,
		AuthorID: author.ID,
	}
	if err := ps.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = *author
	return comment, nil
}
