package models

import "time"

const PostTextMaxLength = 200

type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  int64     `gorm:"index;not null" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	GroupID   *int64    `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Post) TableName() string {
	return "posts"
}
