package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu               sync.RWMutex
	users            map[string]*domain.User
	posts            map[string]*domain.Post
	comments         map[string]*domain.Comment
	commentsByPost   map[string][]string // map[postID][]commentID (только корневые)
	commentsByParent map[string][]string // map[parentID][]commentID
	now              func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:            make(map[string]*domain.User),
		posts:            make(map[string]*domain.Post),
		comments:         make(map[string]*domain.Comment),
		commentsByPost:   make(map[string][]string),
		commentsByParent: make(map[string][]string),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// === User Methods ===

// PutUser добавляет или заменяет пользователя. Пользователи внешние,
// поэтому метод нужен только для сидинга и тестов.
func (s *Store) PutUser(user *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	u := *user
	s.users[u.ID] = &u
	return user
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	u := *user
	return &u, nil
}

// === Post Methods ===

func (s *Store) ListNearbyPosts(ctx context.Context, near domain.Point) ([]*domain.NearbyPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commentsCount := make(map[string]int, len(s.posts))
	for _, c := range s.comments {
		commentsCount[c.PostID]++
	}

	posts := lo.Values(s.posts)
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})

	result := lo.Map(posts, func(p *domain.Post, _ int) *domain.NearbyPost {
		return &domain.NearbyPost{
			ID:            p.ID,
			Title:         p.Title,
			Content:       p.Content,
			Name:          p.Author.Name,
			Type:          p.Author.Type,
			Distance:      domain.Distance(near, p.Author.Location),
			CommentsCount: commentsCount[p.ID],
			LikesCount:    len(p.Likes),
		}
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Distance < result[j].Distance
	})
	return result, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = uuid.NewString()
	post.CreatedAt = s.now()
	if post.Likes == nil {
		post.Likes = []string{}
	}
	s.posts[post.ID] = clonePost(post)
	return clonePost(post), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	return clonePost(post), nil
}

func (s *Store) ReplacePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}
	stored.Title = post.Title
	stored.Content = post.Content
	stored.ExpireAt = post.ExpireAt
	return clonePost(stored), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return 0, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	delete(s.posts, id)
	return 1, nil
}

func (s *Store) AddPostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	if !lo.Contains(post.Likes, userID) {
		post.Likes = append(post.Likes, userID)
	}
	return clonePost(post), nil
}

func (s *Store) RemovePostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	post.Likes = lo.Without(post.Likes, userID)
	return clonePost(post), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment.ID = uuid.NewString()
	comment.CreatedAt = s.now()
	comment.Likes = []string{}
	comment.LikesCount = 0
	s.comments[comment.ID] = cloneComment(comment)

	// Обновление индексов для иерархии
	if comment.ParentID == nil {
		s.commentsByPost[comment.PostID] = append(s.commentsByPost[comment.PostID], comment.ID)
	} else {
		s.commentsByParent[*comment.ParentID] = append(s.commentsByParent[*comment.ParentID], comment.ID)
	}

	return cloneComment(comment), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	return cloneComment(comment), nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.commentsByPost[postID]), nil
}

func (s *Store) UpdateCommentText(ctx context.Context, postID, commentID, authorID, text string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok || comment.PostID != postID || comment.AuthorID != authorID {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	comment.Text = text
	return cloneComment(comment), nil
}

func (s *Store) DeleteCommentThread(ctx context.Context, postID, commentID, authorID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok || comment.PostID != postID || comment.AuthorID != authorID {
		return 0, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	var deleted int64
	for _, childID := range s.commentsByParent[commentID] {
		if child, ok := s.comments[childID]; ok && child.PostID == postID {
			s.remove(child)
			deleted++
		}
	}
	s.remove(comment)
	return deleted + 1, nil
}

func (s *Store) DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, c := range s.comments {
		if c.PostID == postID {
			s.remove(c)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) AddCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok || comment.PostID != postID || lo.Contains(comment.Likes, userID) {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	comment.Likes = append(comment.Likes, userID)
	comment.LikesCount++
	return cloneComment(comment), nil
}

func (s *Store) RemoveCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok || comment.PostID != postID || !lo.Contains(comment.Likes, userID) {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	comment.Likes = lo.Without(comment.Likes, userID)
	comment.LikesCount--
	return cloneComment(comment), nil
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Comment, len(parentIDs))
	for _, pID := range parentIDs {
		results[pID] = s.collect(s.commentsByParent[pID])
	}
	return results, nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

// collect собирает копии комментариев по id, отсортированные по времени создания.
// Вызывать под блокировкой.
func (s *Store) collect(ids []string) []*domain.Comment {
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			comments = append(comments, cloneComment(c))
		}
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments
}

// remove удаляет комментарий и чистит индексы. Вызывать под блокировкой.
// Индекс детей удаленного комментария не трогаем: внуки остаются сиротами.
func (s *Store) remove(c *domain.Comment) {
	delete(s.comments, c.ID)
	if c.ParentID == nil {
		s.commentsByPost[c.PostID] = lo.Without(s.commentsByPost[c.PostID], c.ID)
		if len(s.commentsByPost[c.PostID]) == 0 {
			delete(s.commentsByPost, c.PostID)
		}
		return
	}
	parentID := *c.ParentID
	s.commentsByParent[parentID] = lo.Without(s.commentsByParent[parentID], c.ID)
	if len(s.commentsByParent[parentID]) == 0 {
		delete(s.commentsByParent, parentID)
	}
}

func clonePost(p *domain.Post) *domain.Post {
	cp := *p
	cp.Likes = append([]string{}, p.Likes...)
	return &cp
}

func cloneComment(c *domain.Comment) *domain.Comment {
	cp := *c
	cp.Likes = append([]string{}, c.Likes...)
	if c.ParentID != nil {
		parentID := *c.ParentID
		cp.ParentID = &parentID
	}
	cp.Children = nil
	return &cp
}
