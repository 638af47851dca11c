package services

import (
	"blog/db"
	"blog/models"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

// setupTestDB подключает чистую sqlite базу в памяти на время теста
func setupTestDB(t *testing.T) {
	t.Helper()
	database, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	prev := db.ORM
	db.ORM = database
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
		db.ORM = prev
	})
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:  username,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Password:  "unused",
	}
	require.NoError(t, db.ORM.Create(user).Error)
	return user
}

func createTestGroup(t *testing.T, slug string) *models.Group {
	t.Helper()
	group := &models.Group{
		Title:       "Группа " + slug,
		Slug:        slug,
		Description: gofakeit.City(),
	}
	require.NoError(t, db.ORM.Create(group).Error)
	return group
}

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// createTestPosts создает n постов, каждый следующий на секунду новее
func createTestPosts(t *testing.T, author *models.User, group *models.Group, n int) []models.Post {
	t.Helper()
	var count int64
	require.NoError(t, db.ORM.Model(&models.Post{}).Count(&count).Error)

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		post := models.Post{
			Text:      fmt.Sprintf("post %d by %s", i, author.Username),
			AuthorID:  author.ID,
			CreatedAt: testEpoch.Add(time.Duration(int(count)+i) * time.Second),
		}
		if group != nil {
			post.GroupID = &group.ID
		}
		require.NoError(t, db.ORM.Create(&post).Error)
		posts = append(posts, post)
	}
	return posts
}

func postIDs(posts []models.Post) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func reversedIDs(posts []models.Post) []int64 {
	ids := postIDs(posts)
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

type sentNotification struct {
	UserID  int64
	Type    string
	Message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(userID int64, notifyType string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: notifyType, Message: message})
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []PostEvent
	err    error
}

func (p *recordingPublisher) PublishPostEvent(_ context.Context, event PostEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}
