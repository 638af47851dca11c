package services

import (
	"blog/models"
	"context"
	"fmt"
	"log"
)

// FollowService toggles follow edges. Both directions are idempotent and a
// user following themselves is silently ignored.
type FollowService struct {
	store    Store
	notifier Notifier
}

func NewFollowService(store Store, notifier Notifier) *FollowService {
	return &FollowService{store: store, notifier: notifier}
}

// Follow returns true only when a new edge was stored.
func (fs *FollowService) Follow(ctx context.Context, follower *models.User, username string) (bool, error) {
	author, err := fs.store.FindUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if author.ID == follower.ID {
		return false, nil
	}

	created, err := fs.store.CreateFollow(ctx, follower.ID, author.ID)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	log.Printf("DEBUG: user %d followed %d", follower.ID, author.ID)
	if fs.notifier != nil {
		msg := fmt.Sprintf("%s подписался на ваши записи", follower.Username)
		if err := fs.notifier.Notify(author.ID, "follow", msg); err != nil {
			log.Printf("ERROR: failed to notify user %d: %v", author.ID, err)
		}
	}
	return true, nil
}

// Unfollow returns true only when an existing edge was removed.
func (fs *FollowService) Unfollow(ctx context.Context, follower *models.User, username string) (bool, error) {
	author, err := fs.store.FindUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return fs.store.DeleteFollow(ctx, follower.ID, author.ID)
}

func (fs *FollowService) IsFollowing(ctx context.Context, follower *models.User, author *models.User) (bool, error) {
	if follower == nil || author == nil {
		return false, nil
	}
	return fs.store.FollowExists(ctx, follower.ID, author.ID)
}
