package resource

import (
	"context"
	"errors"
	"time"

	"edushare/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// storageSettingsID is the fixed _id of the storage settings document
const storageSettingsID = "storage"

type storageSettings struct {
	ID               string    `bson:"_id"`
	LegacyEnabled    bool      `bson:"legacy_enabled"`
	DecommissionedAt time.Time `bson:"decommissioned_at,omitempty"`
	DecommissionedBy string    `bson:"decommissioned_by,omitempty"`
}

// SettingsRepository persists the legacy-storage switch. Decommissioning the
// legacy uploads directory is a deliberate operator action, so the state
// survives restarts.
type SettingsRepository interface {
	LegacyEnabled(ctx context.Context) (bool, error)
	DisableLegacy(ctx context.Context, actorID string) error
}

type SettingsRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSettingsRepository(mongodb *database.MongodbDB) SettingsRepository {
	return &SettingsRepositoryImpl{
		Collection: mongodb.DB.Collection("settings"),
	}
}

func (r *SettingsRepositoryImpl) LegacyEnabled(ctx context.Context) (bool, error) {
	var doc storageSettings
	err := r.Collection.FindOne(ctx, bson.M{"_id": storageSettingsID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Never decommissioned
			return true, nil
		}
		return true, err
	}
	return doc.LegacyEnabled, nil
}

func (r *SettingsRepositoryImpl) DisableLegacy(ctx context.Context, actorID string) error {
	update := bson.M{
		"$set": bson.M{
			"legacy_enabled":    false,
			"decommissioned_at": time.Now(),
			"decommissioned_by": actorID,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": storageSettingsID}, update, opts)
	return err
}
