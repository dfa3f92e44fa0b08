package repository

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/GShadowBroker/library-server/models"
)

// MongoUserRepository stores users in the "users" collection.
type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	collection := db.Collection("users")
	ensureUniqueIndex(collection, "username")
	return &MongoUserRepository{collection: collection}
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoUserRepository) Update(ctx context.Context, user *models.User) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoUserRepository) All(ctx context.Context) ([]*models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// MongoAuthorRepository stores authors in the "authors" collection.
type MongoAuthorRepository struct {
	collection *mongo.Collection
}

func NewMongoAuthorRepository(db *mongo.Database) *MongoAuthorRepository {
	collection := db.Collection("authors")
	ensureUniqueIndex(collection, "name")
	return &MongoAuthorRepository{collection: collection}
}

func (r *MongoAuthorRepository) FindByID(ctx context.Context, id string) (*models.Author, error) {
	var author models.Author
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&author)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *MongoAuthorRepository) FindByName(ctx context.Context, name string) (*models.Author, error) {
	var author models.Author
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&author)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *MongoAuthorRepository) Create(ctx context.Context, author *models.Author) error {
	if author.ID == "" {
		author.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, author)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoAuthorRepository) SetBorn(ctx context.Context, name string, born int) (*models.Author, error) {
	var author models.Author
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"born": born}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&author)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *MongoAuthorRepository) AppendBook(ctx context.Context, authorID, bookID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": authorID},
		bson.M{"$addToSet": bson.M{"books": bookID}},
	)
	return err
}

func (r *MongoAuthorRepository) All(ctx context.Context) ([]*models.Author, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var authors []*models.Author
	if err := cursor.All(ctx, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *MongoAuthorRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// MongoBookRepository stores books in the "books" collection.
type MongoBookRepository struct {
	collection *mongo.Collection
}

func NewMongoBookRepository(db *mongo.Database) *MongoBookRepository {
	collection := db.Collection("books")
	ensureUniqueIndex(collection, "title")
	return &MongoBookRepository{collection: collection}
}

func (r *MongoBookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *MongoBookRepository) FindByTitle(ctx context.Context, title string) (*models.Book, error) {
	var book models.Book
	err := r.collection.FindOne(ctx, bson.M{"title": title}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *MongoBookRepository) FindByAuthorID(ctx context.Context, authorID string) ([]*models.Book, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"author": authorID})
	if err != nil {
		return nil, err
	}
	var books []*models.Book
	if err := cursor.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *MongoBookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, book)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MongoBookRepository) All(ctx context.Context) ([]*models.Book, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var books []*models.Book
	if err := cursor.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *MongoBookRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

func ensureUniqueIndex(collection *mongo.Collection, field string) {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := collection.Indexes().CreateOne(context.Background(), indexModel)
	if err != nil {
		slog.Warn("failed to create unique index", "collection", collection.Name(), "field", field, "error", err)
	}
}
