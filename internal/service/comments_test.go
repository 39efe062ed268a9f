package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/geoposts-service/internal/dataloader"
	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/storage/inmemory"
)

type recordingPublisher struct {
	published []*domain.Comment
}

func (p *recordingPublisher) Publish(c *domain.Comment) {
	p.published = append(p.published, c)
}

type commentsFixture struct {
	store    *inmemory.Store
	posts    *Posts
	comments *Comments
	feed     *recordingPublisher
	alice    *domain.User
	bob      *domain.User
	post     *domain.Post
}

func newCommentsFixture(t *testing.T) *commentsFixture {
	t.Helper()
	f := &commentsFixture{store: inmemory.New(), feed: &recordingPublisher{}}
	f.posts = NewPosts(f.store)
	f.comments = NewComments(f.store, f.feed)
	f.alice = putUser(f.store, "Alice", 0, 0)
	f.bob = putUser(f.store, "Bob", 1, 1)

	post, err := f.posts.Create(context.Background(), f.alice.ID, CreatePostInput{Title: "t", Content: "c", ExpireAt: 60})
	require.NoError(t, err)
	f.post = post
	return f
}

func (f *commentsFixture) add(t *testing.T, authorID, text string, parentID *string) *domain.Comment {
	t.Helper()
	c, err := f.comments.Add(context.Background(), f.post.ID, authorID, AddCommentInput{Comment: text, ParentID: parentID})
	require.NoError(t, err)
	return c
}

func TestComments_Add(t *testing.T) {
	f := newCommentsFixture(t)

	c := f.add(t, f.bob.ID, "hello", nil)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, f.post.ID, c.PostID)
	assert.Equal(t, f.bob.ID, c.AuthorID)
	assert.Nil(t, c.ParentID)
	assert.Empty(t, c.Likes)
	assert.Zero(t, c.LikesCount)

	require.Len(t, f.feed.published, 1)
	assert.Equal(t, c.ID, f.feed.published[0].ID)
}

func TestComments_AddValidatesTargets(t *testing.T) {
	f := newCommentsFixture(t)
	ctx := context.Background()

	_, err := f.comments.Add(ctx, "missing", f.bob.ID, AddCommentInput{Comment: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	missing := "missing"
	_, err = f.comments.Add(ctx, f.post.ID, f.bob.ID, AddCommentInput{Comment: "x", ParentID: &missing})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	otherPost, err := f.posts.Create(ctx, f.bob.ID, CreatePostInput{Title: "o", Content: "c", ExpireAt: 60})
	require.NoError(t, err)
	foreign, err := f.comments.Add(ctx, otherPost.ID, f.bob.ID, AddCommentInput{Comment: "elsewhere"})
	require.NoError(t, err)

	_, err = f.comments.Add(ctx, f.post.ID, f.bob.ID, AddCommentInput{Comment: "x", ParentID: &foreign.ID})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Len(t, f.feed.published, 1)
}

func TestComments_Detail(t *testing.T) {
	f := newCommentsFixture(t)

	first := f.add(t, f.bob.ID, "first", nil)
	second := f.add(t, f.alice.ID, "second", nil)
	reply1 := f.add(t, f.alice.ID, "reply 1", &first.ID)
	f.add(t, f.bob.ID, "reply 2", &first.ID)
	f.add(t, f.bob.ID, "nested", &reply1.ID)

	ctx := dataloader.WithLoaders(context.Background(), dataloader.NewLoaders(f.store))
	detail, err := f.comments.Detail(ctx, f.post.ID)
	require.NoError(t, err)

	assert.Equal(t, f.post.ID, detail.Post.ID)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, first.ID, detail.Comments[0].ID)
	assert.Equal(t, 2, detail.Comments[0].ChildCount)
	assert.Len(t, detail.Comments[0].Children, 2)
	assert.Equal(t, second.ID, detail.Comments[1].ID)
	assert.Equal(t, 0, detail.Comments[1].ChildCount)
	assert.Empty(t, detail.Comments[1].Children)

	// (2+1) + (0+1): ответ на ответ не считается
	assert.Equal(t, 4, detail.NumComments)
}

func TestComments_DetailWithoutComments(t *testing.T) {
	f := newCommentsFixture(t)

	detail, err := f.comments.Detail(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.Comments)
	assert.Empty(t, detail.Comments)
	assert.Zero(t, detail.NumComments)

	_, err = f.comments.Detail(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComments_UpdateOnlyByAuthor(t *testing.T) {
	f := newCommentsFixture(t)
	ctx := context.Background()
	c := f.add(t, f.bob.ID, "original", nil)

	_, err := f.comments.Update(ctx, f.post.ID, c.ID, f.alice.ID, UpdateCommentInput{Comment: "stolen"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	updated, err := f.comments.Update(ctx, f.post.ID, c.ID, f.bob.ID, UpdateCommentInput{Comment: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)

	_, err = f.comments.Update(ctx, "other-post", c.ID, f.bob.ID, UpdateCommentInput{Comment: "x"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestComments_DeleteRemovesDirectReplies(t *testing.T) {
	f := newCommentsFixture(t)
	ctx := context.Background()

	root := f.add(t, f.bob.ID, "root", nil)
	f.add(t, f.alice.ID, "reply", &root.ID)
	f.add(t, f.bob.ID, "reply", &root.ID)
	keep := f.add(t, f.alice.ID, "keep", nil)

	_, err := f.comments.Delete(ctx, f.post.ID, root.ID, f.alice.ID)
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	deleted, err := f.comments.Delete(ctx, f.post.ID, root.ID, f.bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	detail, err := f.comments.Detail(ctx, f.post.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, keep.ID, detail.Comments[0].ID)

	_, err = f.comments.Delete(ctx, f.post.ID, root.ID, f.bob.ID)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestComments_Likes(t *testing.T) {
	f := newCommentsFixture(t)
	ctx := context.Background()
	c := f.add(t, f.alice.ID, "like me", nil)

	t.Run("forbidden on behalf of another user", func(t *testing.T) {
		_, err := f.comments.Like(ctx, f.post.ID, c.ID, f.bob.ID, f.alice.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = f.comments.Unlike(ctx, f.post.ID, c.ID, f.bob.ID, f.alice.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("like then repeat", func(t *testing.T) {
		likes, err := f.comments.Like(ctx, f.post.ID, c.ID, f.bob.ID, f.bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{f.bob.ID}, likes.Likes)
		assert.Equal(t, 1, likes.LikesCount)

		_, err = f.comments.Like(ctx, f.post.ID, c.ID, f.bob.ID, f.bob.ID)
		assert.ErrorIs(t, err, domain.ErrBadRequest)

		stored, err := f.store.GetCommentByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.LikesCount)
	})

	t.Run("unlike then repeat", func(t *testing.T) {
		likes, err := f.comments.Unlike(ctx, f.post.ID, c.ID, f.bob.ID, f.bob.ID)
		require.NoError(t, err)
		assert.Empty(t, likes.Likes)
		assert.Zero(t, likes.LikesCount)

		_, err = f.comments.Unlike(ctx, f.post.ID, c.ID, f.bob.ID, f.bob.ID)
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})

	t.Run("missing comment", func(t *testing.T) {
		_, err := f.comments.Like(ctx, f.post.ID, "missing", f.bob.ID, f.bob.ID)
		assert.ErrorIs(t, err, domain.ErrBadRequest)
	})
}
