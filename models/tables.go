package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" prevents the hash from being exposed in API
	Role         string    `gorm:"not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Post struct {
	ID             uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Title          string    `gorm:"not null" json:"title"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	LikesCount     int       `gorm:"not null;default:0;index" json:"likes_count"`
	CommentsCount  int       `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `gorm:"autoUpdateTime" json:"last_modified_at"`
}

type Comment struct {
	ID         uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	LikesCount int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostLike rows are the source of truth for Post.LikesCount.
type PostLike struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like_pair" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_like_pair;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike rows are the source of truth for Comment.LikesCount.
type CommentLike struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair" json:"comment_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type InviteCode struct {
	ID           uint       `gorm:"primary_key;autoIncrement" json:"id"`
	Code         string     `gorm:"uniqueIndex;not null" json:"code"`
	IsUsed       bool       `gorm:"not null;default:false;index" json:"is_used"`
	UsedByUserID *uint      `json:"used_by_user_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
}

// AdminAccount is a separate credential space; its IDs do not refer to users.
type AdminAccount struct {
	ID           uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"column:password;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// All lists every table in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Comment{},
		&PostLike{},
		&CommentLike{},
		&InviteCode{},
		&AdminAccount{},
	}
}
