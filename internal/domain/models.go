package domain

import "time"

// Point - точка в формате GeoJSON. Coordinates хранятся как [долгота, широта].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint создает GeoJSON точку из долготы и широты.
func NewPoint(lng, lat float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p Point) Lng() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// User - внешний пользователь. Сервис только читает его.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Location  Point  `json:"location"`
	Type      string `json:"type"`
}

// FullName - имя в том виде, в каком оно попадает в снимок автора.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Author - снимок автора, встроенный в пост в момент создания.
// После создания поста не меняется, даже если меняется сам пользователь.
type Author struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location Point  `json:"location"`
	Type     string `json:"type"`
}

// SnapshotAuthor копирует поля пользователя в снимок автора.
func SnapshotAuthor(u *User) Author {
	return Author{
		ID:       u.ID,
		Name:     u.FullName(),
		Location: u.Location,
		Type:     u.Type,
	}
}

// Post представляет пост в системе.
type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ExpireAt  time.Time `json:"expireAt"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikesCount всегда выводится из множества лайков.
func (p *Post) LikesCount() int {
	return len(p.Likes)
}

// NearbyPost - проекция поста для ленты "рядом со мной".
type NearbyPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Distance      float64 `json:"distance"`
	CommentsCount int     `json:"commentsCount"`
	LikesCount    int     `json:"likesCount"`
}

// Comment представляет комментарий к посту.
// LikesCount - денормализованный счетчик, меняется вместе с Likes в одной операции.
type Comment struct {
	ID         string     `json:"id"`
	PostID     string     `json:"postId"`
	ParentID   *string    `json:"parentId"`
	AuthorID   string     `json:"authorId"`
	Text       string     `json:"comment"`
	Likes      []string   `json:"likes"`
	LikesCount int        `json:"likesCount"`
	CreatedAt  time.Time  `json:"createdAt"`
	Children   []*Comment `json:"children,omitempty"`
	ChildCount int        `json:"childCount"`
}

// IsTopLevel - комментарий без родителя.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// PostDetail - пост и сводка по дереву комментариев.
type PostDetail struct {
	Post        *Post      `json:"post"`
	Comments    []*Comment `json:"comments"`
	NumComments int        `json:"numComments"`
}

// Likes - результат операций лайка/анлайка.
type Likes struct {
	Likes      []string `json:"likes"`
	LikesCount int      `json:"likesCount"`
}
