package resource

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Moderation status of a resource. Direct creation is approved; the
// rejected state carries a reason set by a moderator.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Resource is an uploaded study material and its descriptive metadata.
// BlobRef and LegacyPath are storage internals and never serialized to
// API callers; records that predate the blob store carry LegacyPath only,
// and records with neither have no recoverable bytes.
type Resource struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Title           string             `bson:"title"`
	Description     string             `bson:"description,omitempty"`
	Subject         string             `bson:"subject"`
	Year            string             `bson:"year,omitempty"`
	Semester        string             `bson:"semester,omitempty"`
	ExamType        string             `bson:"exam_type,omitempty"`
	Category        string             `bson:"category,omitempty"`
	Tags            []string           `bson:"tags,omitempty"`
	OwnerID         primitive.ObjectID `bson:"owner_id,omitempty"`
	Status          string             `bson:"status"`
	RejectionReason string             `bson:"rejection_reason,omitempty"`

	BlobRef    string `bson:"blob_ref,omitempty"`
	LegacyPath string `bson:"legacy_path,omitempty"`

	ContentType      string `bson:"content_type,omitempty"`
	ByteSize         int64  `bson:"byte_size,omitempty"`
	OriginalFilename string `bson:"original_filename,omitempty"`

	Downloads int64     `bson:"downloads"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// FileAvailable reports whether a download can be expected to serve bytes,
// without touching the blob store
func (r *Resource) FileAvailable() bool {
	return r.BlobRef != "" || r.LegacyPath != ""
}

// View is the external shape of a resource. Storage internals are omitted
// and file availability is exposed as a derived flag.
type View struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Subject          string    `json:"subject"`
	Year             string    `json:"year,omitempty"`
	Semester         string    `json:"semester,omitempty"`
	ExamType         string    `json:"exam_type,omitempty"`
	Category         string    `json:"category,omitempty"`
	Tags             []string  `json:"tags"`
	OwnerID          string    `json:"owner_id,omitempty"`
	Status           string    `json:"status"`
	RejectionReason  string    `json:"rejection_reason,omitempty"`
	Downloads        int64     `json:"downloads"`
	ContentType      string    `json:"content_type,omitempty"`
	ByteSize         int64     `json:"byte_size,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	FileAvailable    bool      `json:"file_available"`
	CreatedAt        time.Time `json:"created_at"`
}

func (r *Resource) ToView() View {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	ownerID := ""
	if !r.OwnerID.IsZero() {
		ownerID = r.OwnerID.Hex()
	}

	return View{
		ID:               r.ID.Hex(),
		Title:            r.Title,
		Description:      r.Description,
		Subject:          r.Subject,
		Year:             r.Year,
		Semester:         r.Semester,
		ExamType:         r.ExamType,
		Category:         r.Category,
		Tags:             tags,
		OwnerID:          ownerID,
		Status:           r.Status,
		RejectionReason:  r.RejectionReason,
		Downloads:        r.Downloads,
		ContentType:      r.ContentType,
		ByteSize:         r.ByteSize,
		OriginalFilename: r.OriginalFilename,
		FileAvailable:    r.FileAvailable(),
		CreatedAt:        r.CreatedAt,
	}
}

// Filter narrows List results. Zero values impose no constraint.
type Filter struct {
	Subject  string
	Category string
	Year     string
	Semester string
	ExamType string
	OwnerID  string
	Status   string
	Search   string // case-insensitive match against title, description, tags
}

// FileStatusReport summarises how many records still have recoverable bytes
type FileStatusReport struct {
	Total       int64              `json:"total"`
	WithBlob    int64              `json:"with_blob"`
	LegacyOnly  int64              `json:"legacy_only"`
	Unavailable int64              `json:"unavailable"`
	Missing     []FileStatusRecord `json:"missing"`
}

// FileStatusRecord identifies a record whose bytes can no longer be served
type FileStatusRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	OwnerID string `json:"owner_id,omitempty"`
}
