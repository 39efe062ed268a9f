package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/UkralStul/geoposts-service/internal/dataloader"
	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/logging"
	"github.com/UkralStul/geoposts-service/internal/metrics"
	"github.com/UkralStul/geoposts-service/internal/storage"
)

// Publisher получает каждый созданный комментарий.
type Publisher interface {
	Publish(c *domain.Comment)
}

// AddCommentInput - тело запроса на добавление комментария.
type AddCommentInput struct {
	Comment  string  `json:"comment" validate:"notblank,max=2000"`
	ParentID *string `json:"parentId,omitempty" validate:"omitempty,notblank"`
}

// UpdateCommentInput - тело запроса на изменение текста комментария.
type UpdateCommentInput struct {
	Comment string `json:"comment" validate:"notblank,max=2000"`
}

type Comments struct {
	store     storage.Storage
	publisher Publisher
}

// NewComments создает сервис комментариев. publisher может быть nil.
func NewComments(store storage.Storage, publisher Publisher) *Comments {
	return &Comments{store: store, publisher: publisher}
}

// Detail возвращает пост с корневыми комментариями и их прямыми ответами.
// Ответы на ответы в дерево не попадают и в numComments не считаются.
func (s *Comments) Detail(ctx context.Context, postID string) (*domain.PostDetail, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(ctx, "get post", err)
	}

	roots, err := s.store.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, internalError(ctx, "get comments", err)
	}

	children, err := dataloader.LoadChildren(ctx, s.store, lo.Map(roots, func(c *domain.Comment, _ int) string {
		return c.ID
	}))
	if err != nil {
		return nil, internalError(ctx, "get child comments", err)
	}

	numComments := 0
	for _, root := range roots {
		root.Children = lo.Filter(children[root.ID], func(c *domain.Comment, _ int) bool {
			return c.PostID == postID
		})
		if root.Children == nil {
			root.Children = []*domain.Comment{}
		}
		root.ChildCount = len(root.Children)
		numComments += root.ChildCount + 1
	}
	if roots == nil {
		roots = []*domain.Comment{}
	}

	return &domain.PostDetail{Post: post, Comments: roots, NumComments: numComments}, nil
}

// Add создает комментарий. Родитель, если указан, должен существовать и
// принадлежать тому же посту.
func (s *Comments) Add(ctx context.Context, postID, authorID string, in AddCommentInput) (*domain.Comment, error) {
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		return nil, notFoundOr(ctx, "get post", err)
	}

	if in.ParentID != nil {
		parent, err := s.store.GetCommentByID(ctx, *in.ParentID)
		if err != nil {
			return nil, badRequestOr(ctx, "get parent comment", err)
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("parent comment %s belongs to another post: %w", parent.ID, domain.ErrBadRequest)
		}
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		PostID:   postID,
		ParentID: in.ParentID,
		AuthorID: authorID,
		Text:     in.Comment,
	})
	if err != nil {
		return nil, internalError(ctx, "create comment", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(comment)
	}
	logging.Ctx(ctx).Debug().Str("post_id", postID).Str("comment_id", comment.ID).Msg("comment added")
	return comment, nil
}

// Update меняет текст комментария. Отсутствие комментария и чужое
// авторство дают одну и ту же ошибку ErrBadRequest.
func (s *Comments) Update(ctx context.Context, postID, commentID, authorID string, in UpdateCommentInput) (*domain.Comment, error) {
	comment, err := s.store.UpdateCommentText(ctx, postID, commentID, authorID, in.Comment)
	if err != nil {
		return nil, badRequestOr(ctx, "update comment", err)
	}
	return comment, nil
}

// Delete удаляет комментарий автора и его прямые ответы. Возвращает число удаленных.
func (s *Comments) Delete(ctx context.Context, postID, commentID, authorID string) (int64, error) {
	deleted, err := s.store.DeleteCommentThread(ctx, postID, commentID, authorID)
	if err != nil {
		return 0, badRequestOr(ctx, "delete comment", err)
	}
	return deleted, nil
}

// Like ставит лайк комментарию от имени userID, который должен совпадать с
// аутентифицированным пользователем. Повторный лайк - ErrBadRequest.
func (s *Comments) Like(ctx context.Context, postID, commentID, userID, requesterID string) (*domain.Likes, error) {
	if userID != requesterID {
		return nil, fmt.Errorf("cannot like on behalf of user %s: %w", userID, domain.ErrForbidden)
	}

	comment, err := s.store.AddCommentLike(ctx, postID, commentID, userID)
	metrics.RecordLike("comment", "like", err)
	if err != nil {
		return nil, badRequestOr(ctx, "like comment", err)
	}
	return commentLikes(comment), nil
}

// Unlike снимает лайк. Если лайка не было - ErrBadRequest.
func (s *Comments) Unlike(ctx context.Context, postID, commentID, userID, requesterID string) (*domain.Likes, error) {
	if userID != requesterID {
		return nil, fmt.Errorf("cannot unlike on behalf of user %s: %w", userID, domain.ErrForbidden)
	}

	comment, err := s.store.RemoveCommentLike(ctx, postID, commentID, userID)
	metrics.RecordLike("comment", "unlike", err)
	if err != nil {
		return nil, badRequestOr(ctx, "unlike comment", err)
	}
	return commentLikes(comment), nil
}

func commentLikes(c *domain.Comment) *domain.Likes {
	return &domain.Likes{Likes: c.Likes, LikesCount: c.LikesCount}
}
