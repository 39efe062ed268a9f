package postgres

import (
	"time"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

type userRecord struct {
	ID        string  `gorm:"type:varchar(36);primaryKey"`
	FirstName string  `gorm:"type:varchar(255);not null"`
	LastName  string  `gorm:"type:varchar(255);not null"`
	Lat       float64 `gorm:"not null"`
	Lng       float64 `gorm:"not null"`
	Type      string  `gorm:"type:varchar(64);not null"`
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Location:  domain.NewPoint(r.Lng, r.Lat),
		Type:      r.Type,
	}
}

// postRecord хранит снимок автора в колонках author_*.
type postRecord struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	AuthorID   string    `gorm:"type:varchar(64);not null;index"`
	AuthorName string    `gorm:"type:varchar(512);not null"`
	AuthorLat  float64   `gorm:"not null"`
	AuthorLng  float64   `gorm:"not null"`
	AuthorType string    `gorm:"type:varchar(64);not null"`
	Title      string    `gorm:"type:varchar(255);not null"`
	Content    string    `gorm:"type:text;not null"`
	ExpireAt   time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (postRecord) TableName() string { return "posts" }

func (r *postRecord) toDomain(likes []string) *domain.Post {
	if likes == nil {
		likes = []string{}
	}
	return &domain.Post{
		ID: r.ID,
		Author: domain.Author{
			ID:       r.AuthorID,
			Name:     r.AuthorName,
			Location: domain.NewPoint(r.AuthorLng, r.AuthorLat),
			Type:     r.AuthorType,
		},
		Title:     r.Title,
		Content:   r.Content,
		ExpireAt:  r.ExpireAt,
		Likes:     likes,
		CreatedAt: r.CreatedAt,
	}
}

type postLikeRecord struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (postLikeRecord) TableName() string { return "post_likes" }

type commentRecord struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	PostID     string    `gorm:"type:varchar(36);not null;index"`
	ParentID   *string   `gorm:"type:varchar(36);index"`
	AuthorID   string    `gorm:"type:varchar(64);not null"`
	Comment    string    `gorm:"type:text;not null"`
	LikesCount int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (commentRecord) TableName() string { return "comments" }

func (r *commentRecord) toDomain(likes []string) *domain.Comment {
	if likes == nil {
		likes = []string{}
	}
	return &domain.Comment{
		ID:         r.ID,
		PostID:     r.PostID,
		ParentID:   r.ParentID,
		AuthorID:   r.AuthorID,
		Text:       r.Comment,
		Likes:      likes,
		LikesCount: r.LikesCount,
		CreatedAt:  r.CreatedAt,
	}
}

type commentLikeRecord struct {
	CommentID string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (commentLikeRecord) TableName() string { return "comment_likes" }

type nearbyRow struct {
	ID            string
	Title         string
	Content       string
	Name          string
	Type          string
	Distance      float64
	CommentsCount int
	LikesCount    int
}
