package service

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/logging"
	"github.com/UkralStul/geoposts-service/internal/metrics"
	"github.com/UkralStul/geoposts-service/internal/storage"
)

// CreatePostInput - тело запроса на создание поста. ExpireAt - через сколько секунд пост истекает.
type CreatePostInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	ExpireAt int64  `json:"expireAt" validate:"required,min=1"`
}

// UpdatePostInput - тело PATCH. Это перезапись, а не частичное обновление:
// отсутствующие поля очищаются.
type UpdatePostInput struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Content  *string `json:"content,omitempty"`
	ExpireAt *int64  `json:"expireAt,omitempty" validate:"omitempty,min=1"`
}

// DeletePostResult - ответ на удаление поста.
type DeletePostResult struct {
	DeletedCount         int64 `json:"deletedCount"`
	DeletedCommentsCount int64 `json:"deletedCommentsCount"`
	Success              bool  `json:"success"`
}

type Posts struct {
	store storage.Storage
	now   Clock
}

func NewPosts(store storage.Storage) *Posts {
	return &Posts{store: store, now: systemClock}
}

// ListNearby возвращает посты, отсортированные по расстоянию от зрителя.
func (s *Posts) ListNearby(ctx context.Context, viewerID string) ([]*domain.NearbyPost, error) {
	viewer, err := s.store.GetUserByID(ctx, viewerID)
	if err != nil {
		return nil, notFoundOr(ctx, "get viewer", err)
	}

	posts, err := s.store.ListNearbyPosts(ctx, viewer.Location)
	if err != nil {
		return nil, internalError(ctx, "list nearby posts", err)
	}
	if posts == nil {
		posts = []*domain.NearbyPost{}
	}
	return posts, nil
}

// Create снимает снимок автора и вычисляет время истечения от текущего момента.
func (s *Posts) Create(ctx context.Context, authorID string, in CreatePostInput) (*domain.Post, error) {
	author, err := s.store.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, notFoundOr(ctx, "get author", err)
	}

	post, err := s.store.CreatePost(ctx, &domain.Post{
		Author:   domain.SnapshotAuthor(author),
		Title:    in.Title,
		Content:  in.Content,
		ExpireAt: s.expireAt(in.ExpireAt),
		Likes:    []string{},
	})
	if err != nil {
		return nil, internalError(ctx, "create post", err)
	}

	logging.Ctx(ctx).Info().Str("post_id", post.ID).Msg("post created")
	return post, nil
}

func (s *Posts) Get(ctx context.Context, postID string) (*domain.Post, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(ctx, "get post", err)
	}
	return post, nil
}

// Delete удаляет пост и затем, без транзакции, все его комментарии.
// Сбой удаления комментариев только логируется: пост уже удален.
func (s *Posts) Delete(ctx context.Context, postID, requesterID string) (*DeletePostResult, error) {
	if _, err := s.owned(ctx, postID, requesterID); err != nil {
		return nil, err
	}

	deleted, err := s.store.DeletePost(ctx, postID)
	if err != nil {
		return nil, notFoundOr(ctx, "delete post", err)
	}

	deletedComments, err := s.store.DeleteCommentsByPostID(ctx, postID)
	if err != nil {
		metrics.CascadeFailures.Inc()
		logging.Ctx(ctx).Error().Err(err).Str("post_id", postID).Msg("failed removing comments for deleted post")
	}

	return &DeletePostResult{
		DeletedCount:         deleted,
		DeletedCommentsCount: deletedComments,
		Success:              true,
	}, nil
}

// Update перезаписывает заголовок, текст и время истечения.
// id, снимок автора и лайки не меняются.
func (s *Posts) Update(ctx context.Context, postID, requesterID string, in UpdatePostInput) (*domain.Post, error) {
	post, err := s.owned(ctx, postID, requesterID)
	if err != nil {
		return nil, err
	}

	post.Title = deref(in.Title)
	post.Content = deref(in.Content)
	post.ExpireAt = time.Time{}
	if in.ExpireAt != nil {
		post.ExpireAt = s.expireAt(*in.ExpireAt)
	}

	updated, err := s.store.ReplacePost(ctx, post)
	if err != nil {
		return nil, notFoundOr(ctx, "update post", err)
	}
	return updated, nil
}

// Like добавляет пользователя в множество лайков. Повторный лайк ничего не меняет.
func (s *Posts) Like(ctx context.Context, postID, userID string) (*domain.Likes, error) {
	post, err := s.store.AddPostLike(ctx, postID, userID)
	metrics.RecordLike("post", "like", err)
	if err != nil {
		return nil, notFoundOr(ctx, "like post", err)
	}
	return postLikes(post), nil
}

// Unlike убирает пользователя из множества лайков. Отсутствующий лайк - не ошибка.
func (s *Posts) Unlike(ctx context.Context, postID, userID string) (*domain.Likes, error) {
	post, err := s.store.RemovePostLike(ctx, postID, userID)
	metrics.RecordLike("post", "unlike", err)
	if err != nil {
		return nil, notFoundOr(ctx, "unlike post", err)
	}
	return postLikes(post), nil
}

// owned загружает пост и проверяет, что запрашивающий - его автор.
func (s *Posts) owned(ctx context.Context, postID, requesterID string) (*domain.Post, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(ctx, "get post", err)
	}
	if post.Author.ID != requesterID {
		return nil, fmt.Errorf("post %s is owned by another user: %w", postID, domain.ErrForbidden)
	}
	return post, nil
}

func (s *Posts) expireAt(seconds int64) time.Time {
	return s.now().Add(time.Duration(seconds) * time.Second)
}

func postLikes(p *domain.Post) *domain.Likes {
	return &domain.Likes{Likes: p.Likes, LikesCount: p.LikesCount()}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
