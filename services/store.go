package services

import (
	"blog/db"
	"blog/models"
	"blog/pagination"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence boundary of the blog. Post listings are always
// newest-first and come back as a single materialized page.
type Store interface {
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)

	FindGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	FindGroupByID(ctx context.Context, id int64) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error

	FindPost(ctx context.Context, id int64) (*models.Post, error)
	FindAll(ctx context.Context, req pagination.Request) (pagination.Page[models.Post], error)
	FindByGroup(ctx context.Context, groupID int64, req pagination.Request) (pagination.Page[models.Post], error)
	FindByAuthor(ctx context.Context, authorID int64, req pagination.Request) (pagination.Page[models.Post], error)
	FindByAuthorsIn(ctx context.Context, authorIDs []int64, req pagination.Request) (pagination.Page[models.Post], error)
	CountByAuthor(ctx context.Context, authorID int64) (int64, error)
	CreatePost(ctx context.Context, post *models.Post) error
	// UpdatePost runs fn on the freshly loaded post inside a transaction and
	// saves the result unless fn fails.
	UpdatePost(ctx context.Context, id int64, fn func(post *models.Post) error) (*models.Post, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)

	FollowExists(ctx context.Context, userID, authorID int64) (bool, error)
	CreateFollow(ctx context.Context, userID, authorID int64) (bool, error)
	DeleteFollow(ctx context.Context, userID, authorID int64) (bool, error)
	FollowedAuthorIDs(ctx context.Context, userID int64) ([]int64, error)
	FollowerIDs(ctx context.Context, authorID int64) ([]int64, error)
}

type GormStore struct{}

func NewGormStore() *GormStore {
	return &GormStore{}
}

var _ Store = (*GormStore)(nil)

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("created_at DESC").Order("id DESC")
}

func (s *GormStore) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *GormStore) FindGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := db.GetReadOnlyDB(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, notFound(err, "group")
	}
	return &group, nil
}

func (s *GormStore) FindGroupByID(ctx context.Context, id int64) (*models.Group, error) {
	var group models.Group
	if err := db.GetReadOnlyDB(ctx).First(&group, id).Error; err != nil {
		return nil, notFound(err, "group")
	}
	return &group, nil
}

func (s *GormStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	if err := db.GetReadOnlyDB(ctx).Order("title").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *GormStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := db.GetWriteDB(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (s *GormStore) FindPost(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	err := db.GetReadOnlyDB(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}

// paginatePosts counts the filtered posts, clamps the requested page and
// fetches only that window.
func (s *GormStore) paginatePosts(ctx context.Context, filter func(*gorm.DB) *gorm.DB, req pagination.Request) (pagination.Page[models.Post], error) {
	var total int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Scopes(filter).Count(&total).Error; err != nil {
		return pagination.Page[models.Post]{}, fmt.Errorf("failed to count posts: %w", err)
	}

	w := pagination.Resolve(total, req)
	posts := make([]models.Post, 0, w.Limit)
	if w.Limit > 0 {
		err := db.GetReadOnlyDB(ctx).
			Scopes(filter, newestFirst).
			Preload("Author").
			Preload("Group").
			Offset(w.Offset).
			Limit(w.Limit).
			Find(&posts).Error
		if err != nil {
			return pagination.Page[models.Post]{}, fmt.Errorf("failed to get posts: %w", err)
		}
	}
	return pagination.NewPage(posts, w), nil
}

func (s *GormStore) FindAll(ctx context.Context, req pagination.Request) (pagination.Page[models.Post], error) {
	return s.paginatePosts(ctx, func(q *gorm.DB) *gorm.DB { return q }, req)
}

func (s *GormStore) FindByGroup(ctx context.Context, groupID int64, req pagination.Request) (pagination.Page[models.Post], error) {
	return s.paginatePosts(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("group_id = ?", groupID)
	}, req)
}

func (s *GormStore) FindByAuthor(ctx context.Context, authorID int64, req pagination.Request) (pagination.Page[models.Post], error) {
	return s.paginatePosts(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ?", authorID)
	}, req)
}

func (s *GormStore) FindByAuthorsIn(ctx context.Context, authorIDs []int64, req pagination.Request) (pagination.Page[models.Post], error) {
	if len(authorIDs) == 0 {
		return pagination.NewPage([]models.Post{}, pagination.Resolve(0, req)), nil
	}
	return s.paginatePosts(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id IN ?", authorIDs)
	}, req)
}

func (s *GormStore) CountByAuthor(ctx context.Context, authorID int64) (int64, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := db.GetWriteDB(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (s *GormStore) UpdatePost(ctx context.Context, id int64, fn func(post *models.Post) error) (*models.Post, error) {
	var post models.Post
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			return notFound(err, "post")
		}
		if err := fn(&post); err != nil {
			return err
		}
		return tx.Model(&post).
			Select("text", "group_id", "image").
			Updates(map[string]any{
				"text":     post.Text,
				"group_id": post.GroupID,
				"image":    post.Image,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := db.GetWriteDB(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (s *GormStore) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := db.GetReadOnlyDB(ctx).
		Where("post_id = ?", postID).
		Scopes(newestFirst).
		Preload("Author").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}

func (s *GormStore) FollowExists(ctx context.Context, userID, authorID int64) (bool, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

// CreateFollow relies on the (user_id, author_id) unique index: a duplicate
// insert is silently skipped and reported as not created.
func (s *GormStore) CreateFollow(ctx context.Context, userID, authorID int64) (bool, error) {
	follow := models.Follow{UserID: userID, AuthorID: authorID}
	result := db.GetWriteDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create follow: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) DeleteFollow(ctx context.Context, userID, authorID int64) (bool, error) {
	result := db.GetWriteDB(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete follow: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) FollowedAuthorIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("user_id = ?", userID).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get followed authors: %w", err)
	}
	return ids, nil
}

func (s *GormStore) FollowerIDs(ctx context.Context, authorID int64) ([]int64, error) {
	var ids []int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("author_id = ?", authorID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return ids, nil
}
