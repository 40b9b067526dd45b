package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/storefront/pkg/event"
	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

const (
	snapshotCollection = "order_snapshots"
	defaultSnapshotTTL = 24 * time.Hour
)

// SnapshotRepo persists completed-order snapshots so the reconciler fallback
// survives restarts and is shared between instances.
type SnapshotRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     aqm.Logger
	config     *aqm.Config
}

func NewSnapshotRepo(config *aqm.Config, logger aqm.Logger) *SnapshotRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &SnapshotRepo{
		logger: logger,
		config: config,
	}
}

func (r *SnapshotRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "appetite_storefront"
	}

	ttl := defaultSnapshotTTL
	if raw, _ := r.config.GetString("db.mongo.snapshot_ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid db.mongo.snapshot_ttl: %w", err)
		}
		ttl = parsed
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection(snapshotCollection)

	expiryIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "saved_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, expiryIndexModel); err != nil {
		return fmt.Errorf("cannot create saved_at index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: %s", mongoURL, dbName, snapshotCollection)
	return nil
}

func (r *SnapshotRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

// Save upserts the snapshot of an order keyed by its id.
func (r *SnapshotRepo) Save(ctx context.Context, order rating.Order) error {
	doc := newSnapshotDoc(order, time.Now())
	if doc.ID == "" {
		return errors.New("snapshot order has no id")
	}

	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("cannot save order snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Get(ctx context.Context, orderID string) (*rating.Order, error) {
	var doc snapshotDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, rating.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("cannot find order snapshot: %w", err)
	}
	order := doc.order()
	return &order, nil
}

type snapshotDoc struct {
	ID          string         `bson:"_id"`
	Status      string         `bson:"status"`
	TableNumber string         `bson:"table_number,omitempty"`
	Items       []snapshotItem `bson:"items"`
	SavedAt     time.Time      `bson:"saved_at"`
}

type snapshotItem struct {
	ID     string  `bson:"id"`
	Name   string  `bson:"name"`
	NameEn string  `bson:"name_en,omitempty"`
	Price  float64 `bson:"price"`
	Image  string  `bson:"image,omitempty"`
}

func newSnapshotDoc(order rating.Order, now time.Time) snapshotDoc {
	doc := snapshotDoc{
		ID:          order.Key(),
		Status:      order.Status,
		TableNumber: order.TableNumber.String(),
		Items:       make([]snapshotItem, 0, len(order.Items)),
		SavedAt:     now,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, snapshotItem{
			ID:     item.Key(),
			Name:   item.Name,
			NameEn: item.NameEn,
			Price:  item.Price,
			Image:  item.Image,
		})
	}
	return doc
}

func (d snapshotDoc) order() rating.Order {
	order := rating.Order{
		ID:          d.ID,
		Status:      d.Status,
		TableNumber: event.TableNumber(d.TableNumber),
		Items:       make([]rating.LineItem, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		order.Items = append(order.Items, rating.LineItem{
			ID:     item.ID,
			Name:   item.Name,
			NameEn: item.NameEn,
			Price:  item.Price,
			Image:  item.Image,
		})
	}
	return order
}
