package resource

import (
	"context"
	"errors"
	"time"

	"edushare/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResourceRepository interface {
	Create(ctx context.Context, res *Resource) error
	Find(ctx context.Context, filter Filter) ([]*Resource, error)
	Get(ctx context.Context, id string) (*Resource, error)
	// Update applies the given $set fields; callers are responsible for
	// whitelisting. updated_at is stamped here.
	Update(ctx context.Context, id string, fields bson.M) (*Resource, error)
	// IncrementDownloads bumps the counter atomically and returns the new value
	IncrementDownloads(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
	// BlobRefs returns the set of blob refs held by any record
	BlobRefs(ctx context.Context) (map[string]bool, error)
	FileStatus(ctx context.Context) (*FileStatusReport, error)
	EnsureIndexes(ctx context.Context) error
}

type ResourceRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewResourceRepository(mongodb *database.MongodbDB) ResourceRepository {
	return &ResourceRepositoryImpl{
		Collection: mongodb.DB.Collection("resources"),
	}
}

func (r *ResourceRepositoryImpl) Create(ctx context.Context, res *Resource) error {
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now
	_, err := r.Collection.InsertOne(ctx, res)
	return err
}

// buildFilter translates a Filter into a Mongo query document
func buildFilter(f Filter) bson.M {
	query := bson.M{}

	if f.Subject != "" {
		query["subject"] = f.Subject
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.Year != "" {
		query["year"] = f.Year
	}
	if f.Semester != "" {
		query["semester"] = f.Semester
	}
	if f.ExamType != "" {
		query["exam_type"] = f.ExamType
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.OwnerID != "" {
		if oid, err := primitive.ObjectIDFromHex(f.OwnerID); err == nil {
			query["owner_id"] = oid
		}
	}
	if f.Search != "" {
		regex := primitive.Regex{Pattern: regexQuoteMeta(f.Search), Options: "i"}
		query["$or"] = []bson.M{
			{"title": bson.M{"$regex": regex}},
			{"description": bson.M{"$regex": regex}},
			{"tags": bson.M{"$regex": regex}},
		}
	}

	return query
}

// regexQuoteMeta escapes regex metacharacters so search terms match literally
func regexQuoteMeta(s string) string {
	special := `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(special); j++ {
			if s[i] == special[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

func (r *ResourceRepositoryImpl) Find(ctx context.Context, filter Filter) ([]*Resource, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.Collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var resources []*Resource
	if err := cursor.All(ctx, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *ResourceRepositoryImpl) Get(ctx context.Context, id string) (*Resource, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrRecordNotFound
	}

	var res Resource
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *ResourceRepositoryImpl) Update(ctx context.Context, id string, fields bson.M) (*Resource, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrRecordNotFound
	}

	fields["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var res Resource
	err = r.Collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &res, nil
}

// IncrementDownloads relies on Mongo's atomic $inc so concurrent downloads
// of the same record never lose updates
func (r *ResourceRepositoryImpl) IncrementDownloads(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrRecordNotFound
	}

	update := bson.M{
		"$inc": bson.M{"downloads": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var res Resource
	err = r.Collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrRecordNotFound
		}
		return 0, err
	}
	return res.Downloads, nil
}

func (r *ResourceRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrRecordNotFound
	}

	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *ResourceRepositoryImpl) BlobRefs(ctx context.Context) (map[string]bool, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"blob_ref": bson.M{"$ne": ""}},
		options.Find().SetProjection(bson.M{"blob_ref": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	refs := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc struct {
			BlobRef string `bson:"blob_ref"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		if doc.BlobRef != "" {
			refs[doc.BlobRef] = true
		}
	}
	return refs, cursor.Err()
}

func (r *ResourceRepositoryImpl) FileStatus(ctx context.Context) (*FileStatusReport, error) {
	report := &FileStatusReport{Missing: []FileStatusRecord{}}

	cursor, err := r.Collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"title": 1, "owner_id": 1, "blob_ref": 1, "legacy_path": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var res Resource
		if err := cursor.Decode(&res); err != nil {
			continue
		}
		report.Total++
		switch {
		case res.BlobRef != "":
			report.WithBlob++
		case res.LegacyPath != "":
			report.LegacyOnly++
		default:
			report.Unavailable++
			record := FileStatusRecord{ID: res.ID.Hex(), Title: res.Title}
			if !res.OwnerID.IsZero() {
				record.OwnerID = res.OwnerID.Hex()
			}
			report.Missing = append(report.Missing, record)
		}
	}
	return report, cursor.Err()
}

func (r *ResourceRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	_, err := r.Collection.Indexes().CreateMany(ctx, indexes)
	return err
}
