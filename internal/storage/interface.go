package storage

import (
	"context"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

// Storage определяет контракт для хранилищ.
//
// Все методы, которые ищут документ по идентификатору или по условию,
// возвращают domain.ErrNotFound, если ничего не совпало.
type Storage interface {
	// Пользователи (только чтение)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	// Посты
	ListNearbyPosts(ctx context.Context, near domain.Point) ([]*domain.NearbyPost, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// ReplacePost перезаписывает редактируемые поля поста целиком.
	ReplacePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) (int64, error)
	AddPostLike(ctx context.Context, postID, userID string) (*domain.Post, error)
	RemovePostLike(ctx context.Context, postID, userID string) (*domain.Post, error)

	// Комментарии
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	// GetCommentsByPostID возвращает только корневые комментарии поста по времени создания.
	GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error)
	// UpdateCommentText меняет текст, только если совпали id, автор и пост.
	UpdateCommentText(ctx context.Context, postID, commentID, authorID, text string) (*domain.Comment, error)
	// DeleteCommentThread удаляет комментарий автора и его прямых детей.
	DeleteCommentThread(ctx context.Context, postID, commentID, authorID string) (int64, error)
	DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error)
	// AddCommentLike добавляет лайк и увеличивает счетчик, только если лайка еще нет.
	AddCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error)
	// RemoveCommentLike убирает лайк и уменьшает счетчик, только если лайк есть.
	RemoveCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error)

	// Метод для Dataloader'а
	GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error)

	Close(ctx context.Context) error
}
