package models

import "time"

type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	PostID    int64     `gorm:"index;not null" json:"post_id"`
	AuthorID  int64     `gorm:"index;not null" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
