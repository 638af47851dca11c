package main

import (
	"blog/db"
	"blog/models"
	"blog/services"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// seed наполняет базу тестовыми группами, пользователями, постами и подписками
func seed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	numGroups := fs.Int("groups", 5, "number of groups")
	numUsers := fs.Int("users", 20, "number of users")
	numPosts := fs.Int("posts", 200, "number of posts")
	numFollows := fs.Int("follows", 60, "number of follow attempts")
	password := fs.String("password", "password", "password of every seeded user")
	batchSize := fs.Int("batch", 500, "insert batch size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *numUsers < 1 {
		return errors.New("at least one user is required")
	}

	if err := db.ConnectDB(); err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	start := time.Now()
	store := services.NewGormStore()
	users := services.NewUserService()

	groups := make([]models.Group, 0, *numGroups)
	for i := 0; i < *numGroups; i++ {
		group := models.Group{
			Title:       gofakeit.Company(),
			Slug:        fmt.Sprintf("group-%d-%s", i, gofakeit.Numerify("####")),
			Description: gofakeit.HackerPhrase(),
		}
		if err := store.CreateGroup(ctx, &group); err != nil {
			return err
		}
		groups = append(groups, group)
	}
	log.Printf("seeded %d groups", len(groups))

	authors := make([]*models.User, 0, *numUsers)
	for i := 0; i < *numUsers; i++ {
		user, err := users.Register(ctx, services.RegisterInput{
			Username:  fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Password:  *password,
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
		})
		if err != nil {
			return err
		}
		authors = append(authors, user)
	}
	log.Printf("seeded %d users", len(authors))

	yearAgo := time.Now().AddDate(-1, 0, 0)
	posts := make([]models.Post, 0, *numPosts)
	for i := 0; i < *numPosts; i++ {
		post := models.Post{
			Text:      truncate(gofakeit.HackerPhrase(), models.PostTextMaxLength),
			AuthorID:  authors[gofakeit.Number(0, len(authors)-1)].ID,
			CreatedAt: gofakeit.DateRange(yearAgo, time.Now()).UTC(),
		}
		if len(groups) > 0 && gofakeit.Bool() {
			post.GroupID = &groups[gofakeit.Number(0, len(groups)-1)].ID
		}
		posts = append(posts, post)
	}
	if len(posts) > 0 {
		if err := db.GetWriteDB(ctx).CreateInBatches(posts, *batchSize).Error; err != nil {
			return fmt.Errorf("failed to insert posts: %w", err)
		}
	}
	log.Printf("seeded %d posts", len(posts))

	follows := 0
	for i := 0; i < *numFollows && len(authors) > 1; i++ {
		follower := authors[gofakeit.Number(0, len(authors)-1)]
		author := authors[gofakeit.Number(0, len(authors)-1)]
		if follower.ID == author.ID {
			continue
		}
		created, err := store.CreateFollow(ctx, follower.ID, author.ID)
		if err != nil {
			return err
		}
		if created {
			follows++
		}
	}
	log.Printf("seeded %d follows", follows)
	log.Printf("done in %s", time.Since(start).Truncate(time.Millisecond))
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
