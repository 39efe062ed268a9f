package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

func TestCommentObserver_DeliversOnlyToPostSubscribers(t *testing.T) {
	o := NewCommentObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postA := o.Subscribe(ctx, "a")
	postB := o.Subscribe(ctx, "b")

	o.Publish(&domain.Comment{ID: "c1", PostID: "a"})

	select {
	case c := <-postA:
		assert.Equal(t, "c1", c.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber of post a did not receive the comment")
	}

	select {
	case c := <-postB:
		t.Fatalf("subscriber of post b got %v", c)
	default:
	}
}

func TestCommentObserver_UnsubscribesOnCancel(t *testing.T) {
	o := NewCommentObserver()
	ctx, cancel := context.WithCancel(context.Background())

	ch := o.Subscribe(ctx, "a")
	require.Equal(t, 1, o.Subscribers("a"))

	cancel()

	require.Eventually(t, func() bool { return o.Subscribers("a") == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)

	// Публикация после отписки не паникует
	o.Publish(&domain.Comment{ID: "c1", PostID: "a"})
}

func TestCommentObserver_PublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	o := NewCommentObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = o.Subscribe(ctx, "a")

	done := make(chan struct{})
	go func() {
		for i := 0; i < o.buffer*4; i++ {
			o.Publish(&domain.Comment{PostID: "a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
