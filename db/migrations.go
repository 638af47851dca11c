package db

import (
	"blog/models"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

type sqlMigration struct {
	name       string
	statements []string
}

// Индексы под сортировку лент: created_at DESC, id DESC
var sqlMigrations = []sqlMigration{
	{
		name: "0001_posts_feed_order",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_posts_feed_order ON posts (created_at DESC, id DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_posts_author_feed_order ON posts (author_id, created_at DESC, id DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_posts_group_feed_order ON posts (group_id, created_at DESC, id DESC)`,
		},
	},
	{
		name: "0002_comments_post_order",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_comments_post_order ON comments (post_id, created_at DESC, id DESC)`,
		},
	},
}

// Migrate creates the schema and applies the named SQL migrations once.
func Migrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.Migration{},
		&models.User{},
		&models.UserTokens{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	for _, m := range sqlMigrations {
		if err := applyMigration(database, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(database *gorm.DB, m sqlMigration) error {
	var applied models.Migration
	err := database.Where("name = ?", m.name).First(&applied).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check migration %s: %w", m.name, err)
	}

	return database.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range m.statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
			}
		}
		if err := tx.Create(&models.Migration{Name: m.name}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		log.Printf("Applied migration %s", m.name)
		return nil
	})
}
