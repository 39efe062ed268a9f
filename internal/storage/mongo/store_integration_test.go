//go:build integration

package mongo

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

func startMongo(t *testing.T) *Store {
	t.Helper()
	skipIfNoDocker(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	store, err := New(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "geoposts_test", 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestStoreIntegration_NearbyAndCascade(t *testing.T) {
	store := startMongo(t)
	ctx := context.Background()

	viewerID := primitive.NewObjectID()
	_, err := store.users().InsertOne(ctx, bson.D{
		{Key: "_id", Value: viewerID},
		{Key: "firstName", Value: "Ada"},
		{Key: "lastName", Value: "Lovelace"},
		{Key: "location", Value: bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{13.40, 52.52}}}},
		{Key: "type", Value: "person"},
	})
	require.NoError(t, err)

	viewer, err := store.GetUserByID(ctx, viewerID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", viewer.FullName())

	far, err := store.CreatePost(ctx, &domain.Post{Title: "far", Author: domain.Author{ID: "x", Name: "Far", Type: "org", Location: domain.NewPoint(2.35, 48.85)}})
	require.NoError(t, err)
	near, err := store.CreatePost(ctx, &domain.Post{Title: "near", Author: domain.SnapshotAuthor(viewer)})
	require.NoError(t, err)

	root, err := store.CreateComment(ctx, &domain.Comment{PostID: far.ID, AuthorID: viewer.ID, Text: "root"})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: far.ID, ParentID: &root.ID, AuthorID: viewer.ID, Text: "reply"})
	require.NoError(t, err)

	_, err = store.AddPostLike(ctx, far.ID, viewer.ID)
	require.NoError(t, err)
	liked, err := store.AddPostLike(ctx, far.ID, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{viewer.ID}, liked.Likes)

	posts, err := store.ListNearbyPosts(ctx, viewer.Location)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, near.ID, posts[0].ID)
	assert.Equal(t, "Ada Lovelace", posts[0].Name)
	assert.Equal(t, 2, posts[1].CommentsCount)
	assert.Equal(t, 1, posts[1].LikesCount)

	children, err := store.GetCommentsByParentIDs(ctx, []string{root.ID})
	require.NoError(t, err)
	assert.Len(t, children[root.ID], 1)

	deleted, err := store.DeleteCommentsByPostID(ctx, far.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestStoreIntegration_CommentLikes(t *testing.T) {
	store := startMongo(t)
	ctx := context.Background()

	post, err := store.CreatePost(ctx, &domain.Post{Title: "p", Author: domain.Author{ID: "a", Location: domain.NewPoint(0, 0)}})
	require.NoError(t, err)
	comment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "a", Text: "c"})
	require.NoError(t, err)

	liked, err := store.AddCommentLike(ctx, post.ID, comment.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikesCount)

	_, err = store.AddCommentLike(ctx, post.ID, comment.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unliked, err := store.RemoveCommentLike(ctx, post.ID, comment.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikesCount)
	assert.Empty(t, unliked.Likes)
}
