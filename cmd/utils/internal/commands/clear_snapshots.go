package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const snapshotCollection = "order_snapshots"

// ClearSnapshots removes stored order snapshots. With an order id only that
// snapshot is removed.
func ClearSnapshots(ctx context.Context, config *aqm.Config, logger aqm.Logger, orderID string) error {
	mongoURL := config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := config.GetStringOrDef("db.mongo.name", "appetite_storefront")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", dbName)

	_, err = DeleteSnapshots(ctx, client.Database(dbName).Collection(snapshotCollection), logger, orderID)
	return err
}

// SnapshotDeleter is the part of a mongo collection DeleteSnapshots needs.
type SnapshotDeleter interface {
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// DeleteSnapshots removes the snapshot of orderID, or every snapshot when
// orderID is blank, and returns how many were removed.
func DeleteSnapshots(ctx context.Context, coll SnapshotDeleter, logger aqm.Logger, orderID string) (int64, error) {
	result, err := coll.DeleteMany(ctx, snapshotFilter(orderID))
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}

	logger.Info("Snapshots removed", "count", result.DeletedCount)
	return result.DeletedCount, nil
}

func snapshotFilter(orderID string) bson.M {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return bson.M{}
	}
	return bson.M{"_id": orderID}
}
