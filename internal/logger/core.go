package logger

import (
	"go.uber.org/zap/zapcore"
)

// ActivityCore is a custom Zap Core that intercepts log entries
type ActivityCore struct {
	zapcore.Core
	writer *ActivityWriter
}

// NewActivityCore wraps an existing core (like console logger) and mirrors
// Warn+ entries into the activity log
func NewActivityCore(baseCore zapcore.Core, writer *ActivityWriter) zapcore.Core {
	return &ActivityCore{
		Core:   baseCore,
		writer: writer,
	}
}

// Write is called for every log entry
func (c *ActivityCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= zapcore.WarnLevel {
		// Pull out the contextual fields the storage layer attaches
		var resourceID, ref, actor string
		for _, f := range fields {
			switch f.Key {
			case "resource_id":
				resourceID = f.String
			case "ref":
				ref = f.String
			case "actor":
				actor = f.String
			}
		}

		c.writer.AddLog(LogEntry{
			Level:      entry.Level,
			Message:    entry.Message,
			ResourceID: resourceID,
			Ref:        ref,
			Actor:      actor,
			Caller:     entry.Caller.Function,
		})
	}

	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *ActivityCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
