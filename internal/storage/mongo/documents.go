package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
)

type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func toGeoPoint(p domain.Point) geoPoint {
	return geoPoint{Type: "Point", Coordinates: []float64{p.Lng(), p.Lat()}}
}

func (g geoPoint) toDomain() domain.Point {
	if len(g.Coordinates) < 2 {
		return domain.Point{Type: "Point"}
	}
	return domain.NewPoint(g.Coordinates[0], g.Coordinates[1])
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	FirstName string             `bson:"firstName"`
	LastName  string             `bson:"lastName"`
	Location  geoPoint           `bson:"location"`
	Type      string             `bson:"type"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:        d.ID.Hex(),
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Location:  d.Location.toDomain(),
		Type:      d.Type,
	}
}

type authorDoc struct {
	ID       string   `bson:"id"`
	Name     string   `bson:"name"`
	Location geoPoint `bson:"location"`
	Type     string   `bson:"type"`
}

type postDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Author    authorDoc          `bson:"author"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	ExpireAt  time.Time          `bson:"expireAt"`
	Likes     []string           `bson:"likes"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func newPostDoc(p *domain.Post) *postDoc {
	likes := p.Likes
	if likes == nil {
		likes = []string{}
	}
	return &postDoc{
		ID: primitive.NewObjectID(),
		Author: authorDoc{
			ID:       p.Author.ID,
			Name:     p.Author.Name,
			Location: toGeoPoint(p.Author.Location),
			Type:     p.Author.Type,
		},
		Title:     p.Title,
		Content:   p.Content,
		ExpireAt:  p.ExpireAt,
		Likes:     likes,
		CreatedAt: time.Now().UTC(),
	}
}

func (d *postDoc) toDomain() *domain.Post {
	likes := d.Likes
	if likes == nil {
		likes = []string{}
	}
	return &domain.Post{
		ID: d.ID.Hex(),
		Author: domain.Author{
			ID:       d.Author.ID,
			Name:     d.Author.Name,
			Location: d.Author.Location.toDomain(),
			Type:     d.Author.Type,
		},
		Title:     d.Title,
		Content:   d.Content,
		ExpireAt:  d.ExpireAt,
		Likes:     likes,
		CreatedAt: d.CreatedAt,
	}
}

// nearbyDoc - результат конвейера nearbyPostsPipeline.
type nearbyDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Title         string             `bson:"title"`
	Content       string             `bson:"content"`
	Name          string             `bson:"name"`
	Type          string             `bson:"type"`
	Distance      float64            `bson:"distance"`
	CommentsCount int                `bson:"commentsCount"`
	LikesCount    int                `bson:"likesCount"`
}

func (d *nearbyDoc) toDomain() *domain.NearbyPost {
	return &domain.NearbyPost{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		Content:       d.Content,
		Name:          d.Name,
		Type:          d.Type,
		Distance:      d.Distance,
		CommentsCount: d.CommentsCount,
		LikesCount:    d.LikesCount,
	}
}

type commentDoc struct {
	ID         primitive.ObjectID  `bson:"_id"`
	PostID     primitive.ObjectID  `bson:"postId"`
	ParentID   *primitive.ObjectID `bson:"parentId"`
	AuthorID   string              `bson:"authorId"`
	Text       string              `bson:"comment"`
	Likes      []string            `bson:"likes"`
	LikesCount int                 `bson:"likesCount"`
	CreatedAt  time.Time           `bson:"createdAt"`
}

func newCommentDoc(c *domain.Comment) (*commentDoc, error) {
	postID, err := objectID(c.PostID)
	if err != nil {
		return nil, err
	}
	doc := &commentDoc{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		Likes:     []string{},
		CreatedAt: time.Now().UTC(),
	}
	if c.ParentID != nil {
		parentID, err := objectID(*c.ParentID)
		if err != nil {
			return nil, err
		}
		doc.ParentID = &parentID
	}
	return doc, nil
}

func (d *commentDoc) toDomain() *domain.Comment {
	c := &domain.Comment{
		ID:         d.ID.Hex(),
		PostID:     d.PostID.Hex(),
		AuthorID:   d.AuthorID,
		Text:       d.Text,
		Likes:      d.Likes,
		LikesCount: d.LikesCount,
		CreatedAt:  d.CreatedAt,
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	if d.ParentID != nil {
		parentID := d.ParentID.Hex()
		c.ParentID = &parentID
	}
	return c
}

// objectID разбирает hex-идентификатор. Невалидный id не может ссылаться
// ни на один документ, поэтому это ErrNotFound.
func objectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("id %q: %w", hex, domain.ErrNotFound)
	}
	return id, nil
}
