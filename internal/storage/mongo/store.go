package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Store реализует интерфейс Storage поверх MongoDB.
// Транзакции не используются: каждая операция атомарна только в пределах документа.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// New подключается к MongoDB и проверяет соединение.
func New(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := NewWithDatabase(client.Database(database), timeout)
	store.client = client
	return store, nil
}

// NewWithDatabase оборачивает уже открытую базу. Закрытием клиента управляет вызывающий.
func NewWithDatabase(db *mongo.Database, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// EnsureIndexes создает индексы, без которых не работают $geoNear и выборки комментариев.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for collection, models := range indexModels() {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) users() *mongo.Collection    { return s.db.Collection(usersCollection) }
func (s *Store) posts() *mongo.Collection    { return s.db.Collection(postsCollection) }
func (s *Store) comments() *mongo.Collection { return s.db.Collection(commentsCollection) }

// notFound переводит ErrNoDocuments драйвера в доменную ошибку.
func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// === User Methods ===

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc userDoc
	if err := s.users().FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, notFound(err, "user "+id)
	}
	return doc.toDomain(), nil
}

// === Post Methods ===

func (s *Store) ListNearbyPosts(ctx context.Context, near domain.Point) ([]*domain.NearbyPost, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.posts().Aggregate(ctx, nearbyPostsPipeline(near))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate nearby posts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []nearbyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode nearby posts: %w", err)
	}

	result := make([]*domain.NearbyPost, len(docs))
	for i := range docs {
		result[i] = docs[i].toDomain()
	}
	return result, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := newPostDoc(post)
	if _, err := s.posts().InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc postDoc
	if err := s.posts().FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, notFound(err, "post "+id)
	}
	return doc.toDomain(), nil
}

func (s *Store) ReplacePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	oid, err := objectID(post.ID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: post.Title},
		{Key: "content", Value: post.Content},
		{Key: "expireAt", Value: post.ExpireAt},
	}}}

	var doc postDoc
	err = s.posts().FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, returnAfter).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "post "+post.ID)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) (int64, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.posts().DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return 0, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	return res.DeletedCount, nil
}

func (s *Store) AddPostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	return s.updatePostLikes(ctx, postID, bson.D{{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userID}}}})
}

func (s *Store) RemovePostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	return s.updatePostLikes(ctx, postID, bson.D{{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}}})
}

func (s *Store) updatePostLikes(ctx context.Context, postID string, update bson.D) (*domain.Post, error) {
	oid, err := objectID(postID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc postDoc
	err = s.posts().FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, returnAfter).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "post "+postID)
	}
	return doc.toDomain(), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	doc, err := newCommentDoc(comment)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.comments().InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc commentDoc
	if err := s.comments().FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, notFound(err, "comment "+id)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	oid, err := objectID(postID)
	if err != nil {
		return []*domain.Comment{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.findComments(ctx, topLevelCommentsFilter(oid))
}

func (s *Store) findComments(ctx context.Context, filter bson.D) ([]*domain.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.comments().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find comments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []commentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}

	comments := make([]*domain.Comment, len(docs))
	for i := range docs {
		comments[i] = docs[i].toDomain()
	}
	return comments, nil
}

func (s *Store) UpdateCommentText(ctx context.Context, postID, commentID, authorID, text string) (*domain.Comment, error) {
	postOID, commentOID, err := commentIDs(postID, commentID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{{Key: "comment", Value: text}}}}

	var doc commentDoc
	err = s.comments().FindOneAndUpdate(ctx, ownedCommentFilter(postOID, commentOID, authorID), update, returnAfter).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "comment "+commentID)
	}
	return doc.toDomain(), nil
}

// DeleteCommentThread сначала удаляет сам комментарий с проверкой автора и
// только потом его прямых детей, чтобы не-автор не мог удалить чужие ответы.
func (s *Store) DeleteCommentThread(ctx context.Context, postID, commentID, authorID string) (int64, error) {
	postOID, commentOID, err := commentIDs(postID, commentID)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.comments().DeleteOne(ctx, ownedCommentFilter(postOID, commentOID, authorID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete comment %s: %w", commentID, err)
	}
	if res.DeletedCount == 0 {
		return 0, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	children, err := s.comments().DeleteMany(ctx, bson.D{
		{Key: "parentId", Value: commentOID},
		{Key: "postId", Value: postOID},
	})
	if err != nil {
		return res.DeletedCount, fmt.Errorf("failed to delete replies of comment %s: %w", commentID, err)
	}
	return res.DeletedCount + children.DeletedCount, nil
}

func (s *Store) DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error) {
	oid, err := objectID(postID)
	if err != nil {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.comments().DeleteMany(ctx, bson.D{{Key: "postId", Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments of post %s: %w", postID, err)
	}
	return res.DeletedCount, nil
}

func (s *Store) AddCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error) {
	postOID, commentOID, err := commentIDs(postID, commentID)
	if err != nil {
		return nil, err
	}
	filter, update := likeCommentUpdate(postOID, commentOID, userID)
	return s.updateCommentLikes(ctx, commentID, filter, update)
}

func (s *Store) RemoveCommentLike(ctx context.Context, postID, commentID, userID string) (*domain.Comment, error) {
	postOID, commentOID, err := commentIDs(postID, commentID)
	if err != nil {
		return nil, err
	}
	filter, update := unlikeCommentUpdate(postOID, commentOID, userID)
	return s.updateCommentLikes(ctx, commentID, filter, update)
}

func (s *Store) updateCommentLikes(ctx context.Context, commentID string, filter, update bson.D) (*domain.Comment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc commentDoc
	if err := s.comments().FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&doc); err != nil {
		return nil, notFound(err, "comment "+commentID)
	}
	return doc.toDomain(), nil
}

// === Dataloader Method ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	result := make(map[string][]*domain.Comment, len(parentIDs))
	oids := make([]primitive.ObjectID, 0, len(parentIDs))
	for _, id := range parentIDs {
		result[id] = []*domain.Comment{}
		if oid, err := objectID(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return result, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Загружаем всех детей одним запросом и группируем по parentId
	comments, err := s.findComments(ctx, bson.D{{Key: "parentId", Value: bson.D{{Key: "$in", Value: oids}}}})
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}
	return result, nil
}

func commentIDs(postID, commentID string) (primitive.ObjectID, primitive.ObjectID, error) {
	postOID, err := objectID(postID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	commentOID, err := objectID(commentID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return postOID, commentOID, nil
}
