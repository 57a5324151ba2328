package resource

import (
	"edushare/internal/config"
)

// UploadPolicy is a size cap plus a content-type allow-list applied before
// any bytes reach the blob store
type UploadPolicy struct {
	Name         string
	MaxSize      int64
	AllowedTypes []string
}

// Validate checks size and declared content type against the policy
func (p UploadPolicy) Validate(size int64, contentType string) error {
	if size <= 0 {
		return validationErrorf("file required")
	}
	if size > p.MaxSize {
		return validationErrorf("file exceeds the %d MB limit", p.MaxSize/(1024*1024))
	}
	for _, allowed := range p.AllowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return validationErrorf("file type %s is not allowed", contentType)
}

// DocumentPolicy is applied to study-material uploads: documents,
// presentations, archives, plain text and images
func DocumentPolicy(cfg *config.Config) UploadPolicy {
	return UploadPolicy{
		Name:    "document",
		MaxSize: cfg.MaxUploadMB * 1024 * 1024,
		AllowedTypes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/zip",
			"application/x-zip-compressed",
			"text/plain",
			"image/png",
			"image/jpeg",
		},
	}
}

// AvatarPolicy is the smaller cap and image-only allow-list used for
// profile pictures
func AvatarPolicy(cfg *config.Config) UploadPolicy {
	return UploadPolicy{
		Name:    "avatar",
		MaxSize: cfg.MaxAvatarMB * 1024 * 1024,
		AllowedTypes: []string{
			"image/png",
			"image/jpeg",
			"image/webp",
		},
	}
}
