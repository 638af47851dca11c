package models

import "time"

// Follow - подписка UserID на посты AuthorID.
// Пара (user_id, author_id) уникальна, подписка на себя запрещена на уровне БД.
type Follow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_follow_pair;check:chk_follow_not_self,user_id <> author_id" json:"user_id"`
	AuthorID  int64     `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}
