package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/UkralStul/geoposts-service/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
// Лайки лежат в отдельных таблицах, пара "лайк + счетчик" меняется в одной транзакции.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, debug bool) (*Store, error) {
	logMode := logger.Silent
	if debug {
		logMode = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&userRecord{}, &postRecord{}, &postLikeRecord{}, &commentRecord{}, &commentLikeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// === User Methods ===

// PutUser добавляет или заменяет пользователя. Используется для сидинга.
func (s *Store) PutUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	rec := userRecord{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Lat:       user.Location.Lat(),
		Lng:       user.Location.Lng(),
		Type:      user.Type,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user "+id)
	}
	return rec.toDomain(), nil
}

// === Post Methods ===

// nearbyQuery считает расстояние по формуле гаверсинусов, чтобы не требовать PostGIS.
const nearbyQuery = `
SELECT p.id, p.title, p.content, p.author_name AS name, p.author_type AS type,
	2 * @radius * asin(least(1, sqrt(
		power(sin(radians(p.author_lat - @lat) / 2), 2) +
		cos(radians(@lat)) * cos(radians(p.author_lat)) *
		power(sin(radians(p.author_lng - @lng) / 2), 2)
	))) AS distance,
	(SELECT count(*) FROM comments c WHERE c.post_id = p.id) AS comments_count,
	(SELECT count(*) FROM post_likes l WHERE l.post_id = p.id) AS likes_count
FROM posts p
ORDER BY distance ASC, p.created_at ASC`

func (s *Store) ListNearbyPosts(ctx context.Context, near domain.Point) ([]*domain.NearbyPost, error) {
	var rows []nearbyRow
	err := s.db.WithContext(ctx).Raw(nearbyQuery, map[string]interface{}{
		"radius": domain.EarthRadiusMeters,
		"lat":    near.Lat(),
		"lng":    near.Lng(),
	}).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby posts: %w", err)
	}

	result := make([]*domain.NearbyPost, len(rows))
	for i, r := range rows {
		result[i] = &domain.NearbyPost{
			ID:            r.ID,
			Title:         r.Title,
			Content:       r.Content,
			Name:          r.Name,
			Type:          r.Type,
			Distance:      r.Distance,
			CommentsCount: r.CommentsCount,
			LikesCount:    r.LikesCount,
		}
	}
	return result, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	rec := postRecord{
		ID:         uuid.NewString(),
		AuthorID:   post.Author.ID,
		AuthorName: post.Author.Name,
		AuthorLat:  post.Author.Location.Lat(),
		AuthorLng:  post.Author.Location.Lng(),
		AuthorType: post.Author.Type,
		Title:      post.Title,
		Content:    post.Content,
		ExpireAt:   post.ExpireAt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return rec.toDomain(nil), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	return s.loadPost(s.db.WithContext(ctx), id)
}

func (s *Store) loadPost(tx *gorm.DB, id string) (*domain.Post, error) {
	var rec postRecord
	if err := tx.First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "post "+id)
	}
	var likes []string
	err := tx.Model(&postLikeRecord{}).
		Where("post_id = ?", id).
		Order("created_at ASC").
		Pluck("user_id", &likes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load likes of post %s: %w", id, err)
	}
	return rec.toDomain(likes), nil
}

func (s *Store) ReplacePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	// map, а не структура: иначе GORM пропустит нулевые значения
	res := s.db.WithContext(ctx).Model(&postRecord{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"title":     post.Title,
		"content":   post.Content,
		"expire_at": post.ExpireAt,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update post %s: %w", post.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}
	return s.GetPostByID(ctx, post.ID)
}

func (s *Store) DeletePost(ctx context.Context, id string) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&postRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
		}
		deleted = res.RowsAffected
		return tx.Delete(&postLikeRecord{}, "post_id = ?", id).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Store) AddPostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	var post *domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, postID); err != nil {
			return err
		}
		like := postLikeRecord{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return err
		}
		var err error
		post, err = s.loadPost(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) RemovePostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	var post *domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, postID); err != nil {
			return err
		}
		if err := tx.Delete(&postLikeRecord{}, "post_id = ? AND user_id = ?", postID, userID).Error; err != nil {
			return err
		}
		var err error
		post, err = s.loadPost(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func postExists(tx *gorm.DB, postID string) error {
	var count int64
	if err := tx.Model(&postRecord{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	rec := commentRecord{
		ID:        uuid.NewString(),
		PostID:    comment.PostID,
		ParentID:  comment.ParentID,
		AuthorID:  comment.AuthorID,
		Comment:   comment.Text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return rec.toDomain(nil), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	return s.loadComment(s.db.WithContext(ctx), id)
}

func (s *Store) loadComment(tx *gorm.DB, id string) (*domain.Comment, error) {
	var rec commentRecord
	if err := tx.First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "comment "+id)
	}
	likes, err := commentLikes(tx, []string{id})
	if err != nil {
		return nil, err
	}
	return rec.toDomain(likes[id]), nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	// Выбираем только комментарии верхнего уровня для поста (parent_id IS NULL)
	return s.findComments(s.db.WithContext(ctx).Where("post_id = ? AND parent_id IS NULL", postID))
}

func (s *Store) findComments(query *gorm.DB) ([]*domain.Comment, error) {
	var recs []commentRecord
	if err := query.Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to find comments: %w", err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	likes, err := commentLikes(query.Session(&gorm.Session{NewDB: true}), ids)
	if err != nil {
		return nil, err
	}

	comments := make([]*domain.Comment, len(recs))
	for i := range recs {
		comments[i] = recs[i].toDomain(likes[recs[i].ID])
	}
	return comments, nil
}

// commentLikes загружает лайки пачки комментариев одним запросом.
func commentLikes(tx *gorm.DB, ids []string) (map[string][]string, error) {
	result := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var likes []commentLikeRecord
	if err := tx.Where("comment_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to load comment likes: %w", err)
	}
	for _, l := range likes {
		result[l.CommentID] = append(result[l.CommentID], l.UserID)
	}
	return result, nil
}

func (s *Store) UpdateCommentText(ctx context.Context, postID, commentID, authorID, text string) (*domain.Comment, error) {
	res := s.db.WithContext(ctx).Model(&commentRecord{}).
		Where("id = ? AND author_id = ? AND post_id = ?", commentID, authorID, postID).
		Update("comment", text)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update comment %s: %w", commentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	return s.GetCommentByID(ctx, commentID)
}

func (s *Store) DeleteCommentThread(ctx context.Context, postID, commentID, authorID string) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&commentRecord{}, "id = ? AND author_id = ? AND post_id = ?", commentID, authorID, postID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
		}

		var childIDs []string
		if err := tx.Model(&commentRecord{}).Where("parent_id = ? AND post_id = ?", commentID, postID).Pluck("id", &childIDs).Error; err != nil {
			return err
		}
		children := tx.Delete(&commentRecord{}, "parent_id = ? AND post_id = ?", commentID, postID)
		if children.Error != nil {
			return children.Error
		}
		deleted = res.RowsAffected + children.RowsAffected
		return tx.Delete(&commentLikeRecord{}, "comment_id IN ?", append(childIDs, commentID)).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Store) DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&commentRecord{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", ids).Delete(&commentLikeRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&commentRecord{}, "post_id = ?", postID)
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments of post %s: %w", postID, err)
	}
	return deleted, nil
}

func (s *Store) AddCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error) {
	var comment *domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := commentInPost(tx, postID, commentID); err != nil {
			return err
		}
		like := commentLikeRecord{CommentID: commentID, UserID: userID, CreatedAt: time.Now().UTC()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("comment %s already liked by %s: %w", commentID, userID, domain.ErrNotFound)
		}
		if err := tx.Model(&commentRecord{}).Where("id = ?", commentID).
			Update("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
			return err
		}
		var err error
		comment, err = s.loadComment(tx, commentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) RemoveCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error) {
	var comment *domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := commentInPost(tx, postID, commentID); err != nil {
			return err
		}
		res := tx.Delete(&commentLikeRecord{}, "comment_id = ? AND user_id = ?", commentID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("comment %s not liked by %s: %w", commentID, userID, domain.ErrNotFound)
		}
		if err := tx.Model(&commentRecord{}).Where("id = ?", commentID).
			Update("likes_count", gorm.Expr("likes_count - 1")).Error; err != nil {
			return err
		}
		var err error
		comment, err = s.loadComment(tx, commentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func commentInPost(tx *gorm.DB, postID, commentID string) error {
	var count int64
	if err := tx.Model(&commentRecord{}).Where("id = ? AND post_id = ?", commentID, postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	return nil
}

// === Dataloader Method ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	// Загружаем все дочерние комментарии для всех переданных parentID одним запросом
	comments, err := s.findComments(s.db.WithContext(ctx).Where("parent_id IN ?", parentIDs))
	if err != nil {
		return nil, err
	}

	// Группируем результаты в карту map[parentID][]*Comment
	result := make(map[string][]*domain.Comment, len(parentIDs))
	for _, id := range parentIDs {
		result[id] = []*domain.Comment{}
	}
	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}
	return result, nil
}
