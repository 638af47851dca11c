package services

import (
	"blog/db"
	"blog/models"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostBindsAuthorAndPublishes(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, "leo")
	group := createTestGroup(t, "cats")
	publisher := &recordingPublisher{}
	svc := NewPostService(NewGormStore(), NewMediaStore(t.TempDir()), publisher)

	post, err := svc.Create(ctx, author, PostInput{Text: "  hello  ", GroupID: &group.ID})
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.Equal(t, "hello", post.Text)
	assert.Equal(t, author.ID, post.AuthorID)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
	assert.Empty(t, post.Image)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, post.ID, publisher.events[0].PostID)
	assert.Equal(t, "leo", publisher.events[0].Author)
	assert.Equal(t, fmt.Sprintf("author.%d", author.ID), publisher.events[0].RoutingKey())
}

func TestCreatePostStoresImage(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	root := t.TempDir()
	author := createTestUser(t, "leo")
	svc := NewPostService(NewGormStore(), NewMediaStore(root), nil)

	post, err := svc.Create(ctx, author, PostInput{
		Text:  "with image",
		Image: &Upload{Filename: "small.gif", Format: "gif", Data: []byte("GIF89a")},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^posts/\d{8}-[0-9a-f-]{36}\.gif$`, post.Image)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(post.Image)))
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)

	var stored models.Post
	require.NoError(t, db.ORM.First(&stored, post.ID).Error)
	assert.Equal(t, post.Image, stored.Image)
}

func TestEditPostByAuthor(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	root := t.TempDir()
	author := createTestUser(t, "leo")
	group := createTestGroup(t, "cats")
	store := NewGormStore()
	svc := NewPostService(store, NewMediaStore(root), nil)

	post, err := svc.Create(ctx, author, PostInput{
		Text:    "before",
		GroupID: &group.ID,
		Image:   &Upload{Filename: "a.png", Format: "png", Data: []byte("png")},
	})
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, author, post.ID, PostInput{Text: "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", edited.Text)
	assert.Nil(t, edited.GroupID)
	// картинка остается, если новую не загрузили
	assert.Equal(t, post.Image, edited.Image)

	reloaded, err := store.FindPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", reloaded.Text)
	assert.Nil(t, reloaded.GroupID)
	assert.Equal(t, author.ID, reloaded.AuthorID)
	assert.Equal(t, post.CreatedAt.Unix(), reloaded.CreatedAt.Unix())

	replaced, err := svc.Edit(ctx, author, post.ID, PostInput{
		Text:  "after",
		Image: &Upload{Filename: "b.jpeg", Format: "jpeg", Data: []byte("jpg")},
	})
	require.NoError(t, err)
	assert.NotEqual(t, post.Image, replaced.Image)
	assert.Equal(t, ".jpg", filepath.Ext(replaced.Image))
}

func TestEditPostByStrangerIsForbidden(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, "leo")
	stranger := createTestUser(t, "max")
	store := NewGormStore()
	svc := NewPostService(store, nil, nil)

	post, err := svc.Create(ctx, author, PostInput{Text: "mine"})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, stranger, post.ID, PostInput{Text: "hijacked"})
	assert.ErrorIs(t, err, ErrForbidden)

	reloaded, err := store.FindPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", reloaded.Text)

	_, err = svc.Edit(ctx, author, 9999, PostInput{Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddComment(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, "leo")
	commenter := createTestUser(t, "anna")
	store := NewGormStore()
	svc := NewPostService(store, nil, nil)
	post := createTestPosts(t, author, nil, 1)[0]

	comment, err := svc.AddComment(ctx, commenter, post.ID, " nice ")
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Text)
	assert.Equal(t, commenter.ID, comment.AuthorID)
	assert.Equal(t, post.ID, comment.PostID)

	comments, err := store.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "anna", comments[0].Author.Username)

	_, err = svc.AddComment(ctx, commenter, 9999, "lost")
	assert.ErrorIs(t, err, ErrNotFound)
}
