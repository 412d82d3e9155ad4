package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

// cartDoc mirrors domain.Cart for storage. Prices are kept as strings
// because decimal.Decimal has no bson representation.
type cartDoc struct {
	ID        string        `bson:"_id,omitempty"`
	OwnerID   string        `bson:"owner_id"`
	Items     []lineItemDoc `bson:"items"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type lineItemDoc struct {
	ProductID int64     `bson:"product_id"`
	Name      string    `bson:"name"`
	Price     string    `bson:"price"`
	Stock     int       `bson:"stock"`
	Images    []string  `bson:"images"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("carts")}
}

// ConnectMongo dials the cart database and verifies the connection.
// Pool sizes stay modest, every request touches one small document.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, mongoClientOptions(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(database), nil
}

func mongoClientOptions(uri string) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20).
		SetAppName("magknives-cart")
}

func (m *MongoRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	var doc cartDoc
	err := m.collection.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart, err := mapDocToCart(doc)
	if err != nil {
		return nil, fmt.Errorf("map cart document: %w", ErrCartNotFound)
	}
	return cart, nil
}

func (m *MongoRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	doc := mapCartToDoc(cart)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	filter := bson.M{"owner_id": cart.OwnerID}
	update := bson.M{"$set": bson.M{
		"owner_id":   doc.OwnerID,
		"items":      doc.Items,
		"created_at": doc.CreatedAt,
		"updated_at": doc.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, ownerID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	if _, err := m.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func mapCartToDoc(cart *domain.Cart) cartDoc {
	doc := cartDoc{
		OwnerID:   cart.OwnerID,
		Items:     make([]lineItemDoc, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for i, item := range cart.Items {
		doc.Items[i] = lineItemDoc{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			Stock:     item.Stock,
			Images:    item.Images,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		}
	}
	return doc
}

func mapDocToCart(doc cartDoc) (*domain.Cart, error) {
	cart := &domain.Cart{
		OwnerID:   doc.OwnerID,
		Items:     make([]domain.LineItem, len(doc.Items)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for i, item := range doc.Items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("price[%s] is not valid: %w", item.Price, err)
		}
		cart.Items[i] = domain.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Stock:     item.Stock,
			Images:    item.Images,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		}
	}
	return cart, nil
}
