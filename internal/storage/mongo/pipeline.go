package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/UkralStul/geoposts-service/internal/domain"
)

// nearbyPostsPipeline сортирует посты по расстоянию от точки near до
// местоположения автора и добавляет счетчики комментариев и лайков.
// $geoNear обязан быть первой стадией и требует 2dsphere индекс на author.location.
func nearbyPostsPipeline(near domain.Point) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: bson.A{near.Lng(), near.Lat()}},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "key", Value: "author.location"},
			{Key: "spherical", Value: true},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: commentsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "postId"},
			{Key: "as", Value: "comments"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "title", Value: 1},
			{Key: "content", Value: 1},
			{Key: "distance", Value: 1},
			{Key: "name", Value: "$author.name"},
			{Key: "type", Value: "$author.type"},
			{Key: "commentsCount", Value: bson.D{{Key: "$size", Value: "$comments"}}},
			{Key: "likesCount", Value: bson.D{{Key: "$size", Value: bson.D{
				{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}},
			}}}},
		}}},
	}
}

func topLevelCommentsFilter(postID primitive.ObjectID) bson.D {
	return bson.D{{Key: "postId", Value: postID}, {Key: "parentId", Value: nil}}
}

func ownedCommentFilter(postID, commentID primitive.ObjectID, authorID string) bson.D {
	return bson.D{
		{Key: "_id", Value: commentID},
		{Key: "authorId", Value: authorID},
		{Key: "postId", Value: postID},
	}
}

// likeCommentUpdate увеличивает счетчик и добавляет лайк, только если
// пользователя еще нет в likes. Фильтр и обновление идут одной операцией,
// поэтому likesCount не расходится с likes.
func likeCommentUpdate(postID, commentID primitive.ObjectID, userID string) (filter, update bson.D) {
	filter = bson.D{
		{Key: "_id", Value: commentID},
		{Key: "postId", Value: postID},
		{Key: "likes", Value: bson.D{{Key: "$ne", Value: userID}}},
	}
	update = bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likesCount", Value: 1}}},
		{Key: "$push", Value: bson.D{{Key: "likes", Value: userID}}},
	}
	return filter, update
}

func unlikeCommentUpdate(postID, commentID primitive.ObjectID, userID string) (filter, update bson.D) {
	filter = bson.D{
		{Key: "_id", Value: commentID},
		{Key: "postId", Value: postID},
		{Key: "likes", Value: userID},
	}
	update = bson.D{
		{Key: "$inc", Value: bson.D{{Key: "likesCount", Value: -1}}},
		{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}},
	}
	return filter, update
}

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		postsCollection: {
			{Keys: bson.D{{Key: "author.location", Value: "2dsphere"}}},
		},
		commentsCollection: {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "parentId", Value: 1}}},
		},
	}
}
