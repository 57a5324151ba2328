package blob

import (
	"context"
	"errors"
	"time"

	"edushare/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// blobDocument is the stored shape in the blobs collection
type blobDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Data        primitive.Binary   `bson:"data"`
	ContentType string             `bson:"content_type"`
	Filename    string             `bson:"filename"`
	Size        int64              `bson:"size"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// MongoStore keeps payloads as binary fields in the blobs collection.
// Writes are acknowledged by the server before Put returns.
type MongoStore struct {
	Collection *mongo.Collection
}

func NewMongoStore(mongodb *database.MongodbDB) *MongoStore {
	return &MongoStore{
		Collection: mongodb.DB.Collection("blobs"),
	}
}

func (s *MongoStore) Put(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	doc := blobDocument{
		ID:          primitive.NewObjectID(),
		Data:        primitive.Binary{Subtype: 0x00, Data: data},
		ContentType: contentType,
		Filename:    filename,
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
	}

	if _, err := s.Collection.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) Get(ctx context.Context, ref string) (*Blob, error) {
	oid, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc blobDocument
	err = s.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &Blob{
		Data:        doc.Data.Data,
		ContentType: doc.ContentType,
		Filename:    doc.Filename,
		Size:        doc.Size,
	}, nil
}

func (s *MongoStore) Delete(ctx context.Context, ref string) error {
	oid, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil
	}
	_, err = s.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

// DeleteOrphans removes blobs older than minAge whose ref is not held by any
// resource record. Used by the periodic sweep; a crash between the blob write
// and the record insert is the only way such blobs appear.
func (s *MongoStore) DeleteOrphans(ctx context.Context, refs map[string]bool, minAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-minAge)

	cursor, err := s.Collection.Find(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var deleted int64
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		if refs[doc.ID.Hex()] {
			continue
		}
		if _, err := s.Collection.DeleteOne(ctx, bson.M{"_id": doc.ID}); err == nil {
			deleted++
		}
	}
	return deleted, cursor.Err()
}
