//go:build integration

package postgres

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

	"github.com/UkralStul/geoposts-service/internal/domain"
)

func startPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	dockerCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if exec.CommandContext(dockerCtx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "geoposts",
				"POSTGRES_PASSWORD": "geoposts",
				"POSTGRES_DB":       "geoposts",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=geoposts password=geoposts dbname=geoposts sslmode=disable", host, port.Port())
	store, err := New(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestStoreIntegration_PostLifecycle(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	viewer := &domain.User{FirstName: "Ada", LastName: "Lovelace", Location: domain.NewPoint(13.40, 52.52), Type: "person"}
	require.NoError(t, store.PutUser(ctx, viewer))

	far, err := store.CreatePost(ctx, &domain.Post{Title: "far", Author: domain.Author{ID: "x", Name: "Far", Type: "org", Location: domain.NewPoint(2.35, 48.85)}})
	require.NoError(t, err)
	near, err := store.CreatePost(ctx, &domain.Post{Title: "near", Author: domain.SnapshotAuthor(viewer)})
	require.NoError(t, err)

	_, err = store.AddPostLike(ctx, far.ID, viewer.ID)
	require.NoError(t, err)
	liked, err := store.AddPostLike(ctx, far.ID, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{viewer.ID}, liked.Likes)

	root, err := store.CreateComment(ctx, &domain.Comment{PostID: far.ID, AuthorID: viewer.ID, Text: "root"})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: far.ID, ParentID: &root.ID, AuthorID: "y", Text: "reply"})
	require.NoError(t, err)

	posts, err := store.ListNearbyPosts(ctx, viewer.Location)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, near.ID, posts[0].ID)
	assert.InDelta(t, 0, posts[0].Distance, 1)
	assert.Equal(t, 2, posts[1].CommentsCount)
	assert.Equal(t, 1, posts[1].LikesCount)

	liked2, err := store.AddCommentLike(ctx, far.ID, root.ID, "y")
	require.NoError(t, err)
	assert.Equal(t, 1, liked2.LikesCount)
	_, err = store.AddCommentLike(ctx, far.ID, root.ID, "y")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err := store.DeleteCommentThread(ctx, far.ID, root.ID, viewer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	_, err = store.DeletePost(ctx, far.ID)
	require.NoError(t, err)
	_, err = store.GetPostByID(ctx, far.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
