package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Reports which resources still have recoverable files and which need a
// re-upload. Run with: go run ./cmd/filecheck
func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "edushare"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	collection := client.Database(dbName).Collection("resources")

	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		log.Fatalf("Failed to query resources: %v", err)
	}
	defer cursor.Close(ctx)

	type row struct {
		ID         primitive.ObjectID `bson:"_id"`
		Title      string             `bson:"title"`
		BlobRef    string             `bson:"blob_ref"`
		LegacyPath string             `bson:"legacy_path"`
		ByteSize   int64              `bson:"byte_size"`
	}

	var withFiles, legacyOnly, missing []row
	for cursor.Next(ctx) {
		var r row
		if err := cursor.Decode(&r); err != nil {
			continue
		}
		switch {
		case r.BlobRef != "":
			withFiles = append(withFiles, r)
		case r.LegacyPath != "":
			legacyOnly = append(legacyOnly, r)
		default:
			missing = append(missing, r)
		}
	}
	if err := cursor.Err(); err != nil {
		log.Fatalf("Cursor error: %v", err)
	}

	total := len(withFiles) + len(legacyOnly) + len(missing)
	fmt.Printf("Total resources: %d\n\n", total)

	fmt.Printf("With stored file: %d\n", len(withFiles))
	for _, r := range withFiles {
		fmt.Printf("  %s  %s (%.2f KB)\n", r.ID.Hex(), r.Title, float64(r.ByteSize)/1024)
	}

	fmt.Printf("\nLegacy path only: %d\n", len(legacyOnly))
	for _, r := range legacyOnly {
		fmt.Printf("  %s  %s -> %s\n", r.ID.Hex(), r.Title, r.LegacyPath)
	}

	fmt.Printf("\nNo recoverable file: %d\n", len(missing))
	for _, r := range missing {
		fmt.Printf("  %s  %s\n", r.ID.Hex(), r.Title)
	}

	if len(missing) > 0 {
		fmt.Println("\nAction required: resources without files need to be re-uploaded by their owner.")
	}
}
