package resource

import (
	"testing"

	"edushare/internal/config"
)

func TestDocumentPolicy(t *testing.T) {
	cfg := &config.Config{MaxUploadMB: 10, MaxAvatarMB: 5}
	policy := DocumentPolicy(cfg)

	tests := []struct {
		name        string
		size        int64
		contentType string
		wantErr     bool
	}{
		{"pdf under cap", 2 * 1024 * 1024, "application/pdf", false},
		{"docx", 1024, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
		{"zip archive", 1024, "application/zip", false},
		{"plain text", 10, "text/plain", false},
		{"png image", 1024, "image/png", false},
		{"exactly at cap", 10 * 1024 * 1024, "application/pdf", false},
		{"over cap", 10*1024*1024 + 1, "application/pdf", true},
		{"empty file", 0, "application/pdf", true},
		{"executable", 1024, "application/x-msdownload", true},
		{"video", 1024, "video/mp4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.size, tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%d, %q) error = %v, wantErr %v", tt.size, tt.contentType, err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("Validate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestAvatarPolicy(t *testing.T) {
	cfg := &config.Config{MaxUploadMB: 10, MaxAvatarMB: 5}
	policy := AvatarPolicy(cfg)

	tests := []struct {
		name        string
		size        int64
		contentType string
		wantErr     bool
	}{
		{"small png", 100 * 1024, "image/png", false},
		{"jpeg", 1024, "image/jpeg", false},
		{"pdf rejected for avatars", 1024, "application/pdf", true},
		{"over avatar cap", 6 * 1024 * 1024, "image/png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.size, tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%d, %q) error = %v, wantErr %v", tt.size, tt.contentType, err, tt.wantErr)
			}
		})
	}
}
