package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/yourusername/login-signup/internal/users"
)

const (
	defaultMongoDatabase = "LoginSignup"
	usersCollection      = "users"
)

// mongoUser は users コレクションのドキュメントです。
type mongoUser struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Name         string        `bson:"name"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password"`
	CreatedAt    time.Time     `bson:"created_at"`
}

func (d *mongoUser) toUser() *users.User {
	return &users.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// MongoStore は MongoDB にユーザーを保存します。
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

// OpenMongo は MongoDB に接続し、email の一意インデックスを作成します。
// URI にデータベース名がない場合は LoginSignup を使います。
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb uri: %w", err)
	}
	database := cs.Database
	if database == "" {
		database = defaultMongoDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(usersCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create email index: %w", err)
	}

	return &MongoStore{client: client, users: coll}, nil
}

// FindByEmail はメールアドレスでユーザーを探します。保存時に小文字化しているため完全一致で検索します。
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	var doc mongoUser
	err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: users.NormalizeEmail(email)}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb error: %w", err)
	}
	return doc.toUser(), nil
}

// Create はユーザーを保存します。重複キーエラーは ErrDuplicateEmail に変換します。
func (s *MongoStore) Create(ctx context.Context, user *users.User) (*users.User, error) {
	doc := mongoUser{
		ID:           bson.NewObjectID(),
		Name:         user.Name,
		Email:        users.NormalizeEmail(user.Email),
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, users.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("mongodb error: %w", err)
	}
	return doc.toUser(), nil
}

// Close は接続を閉じます。
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
