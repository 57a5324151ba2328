package resource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"edushare/internal/config"
	"edushare/internal/features/blob"
	"edushare/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UploadInput carries a validated multipart upload into the pipeline
type UploadInput struct {
	Title       string
	Description string
	Subject     string
	Year        string
	Semester    string
	ExamType    string
	Category    string
	Tags        []string

	Data        []byte
	ContentType string
	Filename    string
}

// DownloadResult is a resolved byte payload ready to stream
type DownloadResult struct {
	Data        []byte
	ContentType string
	Filename    string
	Size        int64
	Downloads   int64
}

type ResourceService interface {
	Upload(ctx context.Context, ownerID string, in UploadInput) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, error)
	Get(ctx context.Context, id string) (*Resource, error)
	Update(ctx context.Context, id string, actor *utils.UserClaims, fields map[string]interface{}) (*Resource, error)
	Delete(ctx context.Context, id string, actor *utils.UserClaims) error
	Download(ctx context.Context, id string) (*DownloadResult, error)
	StorageReport(ctx context.Context) (*FileStatusReport, error)
	DecommissionLegacy(ctx context.Context, actorID string) error
	SweepOrphans(ctx context.Context) (int64, error)
}

type ResourceServiceImpl struct {
	Repo     ResourceRepository
	Settings SettingsRepository
	Blobs    blob.Store
	Logger   *zap.Logger

	policy    UploadPolicy
	legacyDir string
	orphanAge time.Duration

	legacyOnce    sync.Once
	legacyEnabled atomic.Bool
}

func NewResourceService(repo ResourceRepository, settings SettingsRepository, blobs blob.Store, logger *zap.Logger, cfg *config.Config) ResourceService {
	s := &ResourceServiceImpl{
		Repo:      repo,
		Settings:  settings,
		Blobs:     blobs,
		Logger:    logger,
		policy:    DocumentPolicy(cfg),
		legacyDir: cfg.LegacyDir,
		orphanAge: time.Duration(cfg.OrphanMinAge) * time.Hour,
	}
	s.legacyEnabled.Store(true)
	return s
}

// Upload validates the payload, persists the blob and only then creates the
// record. A record referencing a blob therefore always has retrievable bytes;
// a crash after the blob write leaves at worst an orphan for the sweep.
func (s *ResourceServiceImpl) Upload(ctx context.Context, ownerID string, in UploadInput) (*Resource, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationErrorf("title is required")
	}
	if err := s.policy.Validate(int64(len(in.Data)), in.ContentType); err != nil {
		return nil, err
	}

	ref, err := s.Blobs.Put(ctx, in.Data, in.ContentType, in.Filename)
	if err != nil {
		s.Logger.Error("blob write failed",
			zap.String("filename", in.Filename),
			zap.Error(err))
		return nil, ErrStorageWrite
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = "General"
	}

	res := &Resource{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Subject:     subject,
		Year:        in.Year,
		Semester:    in.Semester,
		ExamType:    in.ExamType,
		Category:    in.Category,
		Tags:        in.Tags,
		Status:      StatusApproved,

		BlobRef:          ref,
		ContentType:      in.ContentType,
		ByteSize:         int64(len(in.Data)),
		OriginalFilename: filepath.Base(in.Filename),
	}
	if oid, err := primitive.ObjectIDFromHex(ownerID); err == nil {
		res.OwnerID = oid
	}

	if err := s.Repo.Create(ctx, res); err != nil {
		// The blob is now unreferenced; try to release it right away
		if delErr := s.Blobs.Delete(ctx, ref); delErr != nil {
			s.Logger.Warn("failed to release blob after create failure",
				zap.String("ref", ref),
				zap.Error(delErr))
		}
		return nil, err
	}

	return res, nil
}

func (s *ResourceServiceImpl) List(ctx context.Context, filter Filter) ([]*Resource, error) {
	return s.Repo.Find(ctx, filter)
}

func (s *ResourceServiceImpl) Get(ctx context.Context, id string) (*Resource, error) {
	return s.Repo.Get(ctx, id)
}

// allowedUpdateFields maps accepted update keys to their stored field names.
// Everything else, notably blob_ref, downloads, id and created_at, is
// silently dropped; those fields change only through their own operations.
var allowedUpdateFields = map[string]string{
	"title":            "title",
	"description":      "description",
	"subject":          "subject",
	"year":             "year",
	"semester":         "semester",
	"exam_type":        "exam_type",
	"category":         "category",
	"tags":             "tags",
	"status":           "status",
	"rejection_reason": "rejection_reason",
}

func (s *ResourceServiceImpl) Update(ctx context.Context, id string, actor *utils.UserClaims, fields map[string]interface{}) (*Resource, error) {
	existing, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(existing, actor); err != nil {
		return nil, err
	}

	set := bson.M{}
	for key, value := range fields {
		stored, ok := allowedUpdateFields[key]
		if !ok {
			continue
		}
		if stored == "title" {
			title, _ := value.(string)
			if strings.TrimSpace(title) == "" {
				return nil, validationErrorf("title cannot be empty")
			}
		}
		if stored == "status" {
			status, _ := value.(string)
			if status != StatusPending && status != StatusApproved && status != StatusRejected {
				return nil, validationErrorf("invalid status %q", status)
			}
		}
		set[stored] = value
	}

	if len(set) == 0 {
		return existing, nil
	}

	return s.Repo.Update(ctx, id, set)
}

// Delete removes the record and then releases the associated bytes. Blob
// deletion is best effort; a failure is logged and never surfaces to the
// caller once the record itself is gone.
func (s *ResourceServiceImpl) Delete(ctx context.Context, id string, actor *utils.UserClaims) error {
	existing, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(existing, actor); err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	if existing.BlobRef != "" {
		if err := s.Blobs.Delete(ctx, existing.BlobRef); err != nil {
			s.Logger.Warn("cascade blob delete failed",
				zap.String("resource_id", id),
				zap.String("ref", existing.BlobRef),
				zap.Error(err))
		}
	}
	if existing.LegacyPath != "" {
		if resolved, ok := s.resolveLegacy(existing.LegacyPath); ok {
			if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
				s.Logger.Warn("cascade legacy file delete failed",
					zap.String("resource_id", id),
					zap.Error(err))
			}
		}
	}

	return nil
}

// Download resolves bytes for a record, preferring the blob store and
// falling back to the legacy uploads directory for pre-migration records.
// The counter is incremented only after bytes are in hand.
func (s *ResourceServiceImpl) Download(ctx context.Context, id string) (*DownloadResult, error) {
	res, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var data []byte
	var contentType, filename string

	switch {
	case res.BlobRef != "":
		b, err := s.Blobs.Get(ctx, res.BlobRef)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				// The record claims bytes the store cannot resolve
				s.Logger.Error("blob missing for referenced record",
					zap.String("resource_id", id),
					zap.String("ref", res.BlobRef))
				return nil, ErrFileCorrupted
			}
			s.Logger.Error("blob read failed",
				zap.String("resource_id", id),
				zap.String("ref", res.BlobRef),
				zap.Error(err))
			return nil, ErrFileCorrupted
		}
		data = b.Data
		contentType = b.ContentType
		filename = b.Filename

	case res.LegacyPath != "":
		if !s.legacyAllowed(ctx) {
			s.Logger.Info("legacy storage decommissioned, file unavailable",
				zap.String("resource_id", id))
			return nil, ErrFileNotAvailable
		}
		resolved, ok := s.resolveLegacy(res.LegacyPath)
		if !ok {
			s.Logger.Warn("legacy path escapes uploads root",
				zap.String("resource_id", id))
			return nil, ErrFileNotAvailable
		}
		legacyData, err := os.ReadFile(resolved)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrFileNotAvailable
			}
			s.Logger.Error("legacy file read failed",
				zap.String("resource_id", id),
				zap.Error(err))
			return nil, ErrFileCorrupted
		}
		data = legacyData
		contentType = res.ContentType
		filename = filepath.Base(res.LegacyPath)

	default:
		// Pre-upgrade record with no recoverable bytes; no I/O attempted
		return nil, ErrFileNotAvailable
	}

	count, err := s.Repo.IncrementDownloads(ctx, id)
	if err != nil {
		return nil, err
	}

	if res.OriginalFilename != "" {
		filename = res.OriginalFilename
	}
	if filename == "" {
		filename = res.Title
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &DownloadResult{
		Data:        data,
		ContentType: contentType,
		Filename:    filename,
		Size:        int64(len(data)),
		Downloads:   count,
	}, nil
}

func (s *ResourceServiceImpl) StorageReport(ctx context.Context) (*FileStatusReport, error) {
	return s.Repo.FileStatus(ctx)
}

// DecommissionLegacy permanently disables the legacy-path fallback. Records
// that only have a legacy path become FileNotAvailable from here on; the
// operation is logged so the data loss is a matter of record.
func (s *ResourceServiceImpl) DecommissionLegacy(ctx context.Context, actorID string) error {
	if err := s.Settings.DisableLegacy(ctx, actorID); err != nil {
		return err
	}
	s.legacyOnce.Do(func() {}) // settings are authoritative from now on
	s.legacyEnabled.Store(false)
	s.Logger.Warn("legacy storage decommissioned",
		zap.String("actor", actorID))
	return nil
}

// SweepOrphans deletes blobs no record references anymore. Orphans appear
// when a crash lands between the blob write and the record insert.
func (s *ResourceServiceImpl) SweepOrphans(ctx context.Context) (int64, error) {
	deleter, ok := s.Blobs.(blob.OrphanDeleter)
	if !ok {
		return 0, nil
	}

	refs, err := s.Repo.BlobRefs(ctx)
	if err != nil {
		return 0, err
	}

	deleted, err := deleter.DeleteOrphans(ctx, refs, s.orphanAge)
	if err != nil {
		return deleted, err
	}
	if deleted > 0 {
		s.Logger.Info("orphaned blobs removed", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// legacyAllowed loads the persisted switch once and caches it
func (s *ResourceServiceImpl) legacyAllowed(ctx context.Context) bool {
	s.legacyOnce.Do(func() {
		enabled, err := s.Settings.LegacyEnabled(ctx)
		if err != nil {
			s.Logger.Warn("could not load legacy storage settings", zap.Error(err))
			enabled = true
		}
		s.legacyEnabled.Store(enabled)
	})
	return s.legacyEnabled.Load()
}

// resolveLegacy turns a stored legacy path into an absolute path and verifies
// it stays inside the legacy uploads root. Rejecting before any read is the
// path-traversal guard.
func (s *ResourceServiceImpl) resolveLegacy(legacyPath string) (string, bool) {
	root, err := filepath.Abs(s.legacyDir)
	if err != nil {
		return "", false
	}

	rel := strings.TrimPrefix(legacyPath, "/uploads/")
	rel = strings.TrimPrefix(rel, "/")

	resolved, err := filepath.Abs(filepath.Join(root, rel))
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}

// authorize allows the record owner and admins through
func authorize(res *Resource, actor *utils.UserClaims) error {
	if actor == nil {
		return ErrForbidden
	}
	if actor.Role == utils.RoleAdmin {
		return nil
	}
	if !res.OwnerID.IsZero() && res.OwnerID.Hex() == actor.UserID {
		return nil
	}
	return ErrForbidden
}
