package logger

import (
	"context"
	"fmt"
	"time"

	"edushare/internal/config"
	"edushare/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to the worker
type LogEntry struct {
	Level      zapcore.Level
	Message    string
	ResourceID string
	Ref        string
	Actor      string
	Caller     string // Function name
}

// activityRecord is the document shape written to activity_logs
type activityRecord struct {
	Message    string    `bson:"message"`
	Level      string    `bson:"level"`
	ResourceID string    `bson:"resource_id,omitempty"`
	Ref        string    `bson:"ref,omitempty"`
	Actor      string    `bson:"actor,omitempty"`
	Caller     string    `bson:"caller,omitempty"`
	AppId      string    `bson:"app_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

// ActivityWriter handles the async writing
type ActivityWriter struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

// NewActivityWriter initializes the worker
func NewActivityWriter(mongodb *database.MongodbDB, cfg *config.Config) *ActivityWriter {
	writer := &ActivityWriter{
		db:      mongodb.DB,
		logChan: make(chan LogEntry, 1000), // Buffer 1000 entries
		appId:   cfg.AppId,
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by the Zap core
func (w *ActivityWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop rather than block the request path
		fmt.Println("Activity log channel full! Dropping entry:", entry.Message)
	}
}

func (w *ActivityWriter) processLogs() {
	for entry := range w.logChan {
		record := activityRecord{
			Message:    entry.Message,
			Level:      entry.Level.String(),
			ResourceID: entry.ResourceID,
			Ref:        entry.Ref,
			Actor:      entry.Actor,
			Caller:     entry.Caller,
			AppId:      w.appId,
			CreatedAt:  time.Now().UTC(),
		}

		// Insert errors are swallowed to keep the app running
		w.db.Collection("activity_logs").InsertOne(context.Background(), record)
	}
}
