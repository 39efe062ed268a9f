package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

// CommentObserver хранит каналы для подписчиков на новые комментарии поста.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs   map[string]map[string]chan *domain.Comment
	buffer int
}

// NewCommentObserver - конструктор наблюдателя.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs:   make(map[string]map[string]chan *domain.Comment),
		buffer: 8,
	}
}

// Subscribe регистрирует подписчика на комментарии поста. Канал закрывается,
// когда ctx завершен.
func (o *CommentObserver) Subscribe(ctx context.Context, postID string) <-chan *domain.Comment {
	ch := make(chan *domain.Comment, o.buffer)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[postID] == nil {
		o.subs[postID] = make(map[string]chan *domain.Comment)
	}
	o.subs[postID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if postSubs, ok := o.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, postID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// Publish рассылает комментарий подписчикам его поста и не блокируется:
// медленный подписчик пропускает сообщение.
func (o *CommentObserver) Publish(c *domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[c.PostID] {
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribers возвращает число подписчиков поста.
func (o *CommentObserver) Subscribers(postID string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postID])
}
