package resource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"edushare/internal/config"
	"edushare/internal/features/blob"
	"edushare/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeBlobStore is an in-memory blob.Store for pipeline tests
type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]blob.Blob
	gets    int
	nextRef int
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string]blob.Blob{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", errors.New("disk full")
	}
	f.nextRef++
	ref := fmt.Sprintf("ref-%d", f.nextRef)
	f.blobs[ref] = blob.Blob{Data: data, ContentType: contentType, Filename: filename, Size: int64(len(data))}
	return ref, nil
}

func (f *fakeBlobStore) Get(ctx context.Context, ref string) (*blob.Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	b, ok := f.blobs[ref]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return &b, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, ref)
	return nil
}

// fakeRepo is an in-memory ResourceRepository
type fakeRepo struct {
	mu        sync.Mutex
	resources map[string]*Resource
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{resources: map[string]*Resource{}}
}

func (f *fakeRepo) Create(ctx context.Context, res *Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	stored := *res
	f.resources[res.ID.Hex()] = &stored
	return nil
}

func (f *fakeRepo) Find(ctx context.Context, filter Filter) ([]*Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Resource
	for _, res := range f.resources {
		copy := *res
		out = append(out, &copy)
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (*Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.resources[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copy := *res
	return &copy, nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, fields bson.M) (*Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.resources[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "title":
			res.Title, _ = value.(string)
		case "description":
			res.Description, _ = value.(string)
		case "subject":
			res.Subject, _ = value.(string)
		case "status":
			res.Status, _ = value.(string)
		}
	}
	copy := *res
	return &copy, nil
}

func (f *fakeRepo) IncrementDownloads(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.resources[id]
	if !ok {
		return 0, ErrRecordNotFound
	}
	res.Downloads++
	return res.Downloads, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resources[id]; !ok {
		return ErrRecordNotFound
	}
	delete(f.resources, id)
	return nil
}

func (f *fakeRepo) BlobRefs(ctx context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	refs := map[string]bool{}
	for _, res := range f.resources {
		if res.BlobRef != "" {
			refs[res.BlobRef] = true
		}
	}
	return refs, nil
}

func (f *fakeRepo) FileStatus(ctx context.Context) (*FileStatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report := &FileStatusReport{Missing: []FileStatusRecord{}}
	for _, res := range f.resources {
		report.Total++
		switch {
		case res.BlobRef != "":
			report.WithBlob++
		case res.LegacyPath != "":
			report.LegacyOnly++
		default:
			report.Unavailable++
			report.Missing = append(report.Missing, FileStatusRecord{ID: res.ID.Hex(), Title: res.Title})
		}
	}
	return report, nil
}

func (f *fakeRepo) EnsureIndexes(ctx context.Context) error { return nil }

// fakeSettings is an in-memory SettingsRepository
type fakeSettings struct {
	mu      sync.Mutex
	enabled bool
}

func (f *fakeSettings) LegacyEnabled(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, nil
}

func (f *fakeSettings) DisableLegacy(ctx context.Context, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
	return nil
}

func testConfig(legacyDir string) *config.Config {
	return &config.Config{
		MaxUploadMB:  10,
		MaxAvatarMB:  5,
		LegacyDir:    legacyDir,
		OrphanMinAge: 24,
	}
}

func newTestService(t *testing.T) (*ResourceServiceImpl, *fakeRepo, *fakeBlobStore) {
	t.Helper()
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	svc := NewResourceService(repo, &fakeSettings{enabled: true}, blobs, zap.NewNop(), testConfig(t.TempDir()))
	return svc.(*ResourceServiceImpl), repo, blobs
}

func pdfUpload(title string) UploadInput {
	return UploadInput{
		Title:       title,
		Subject:     "Mathematics",
		Tags:        []string{"calculus"},
		Data:        []byte("%PDF-1.4 notes"),
		ContentType: "application/pdf",
		Filename:    "notes.pdf",
	}
}

func TestUploadThenDownload(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	owner := primitive.NewObjectID().Hex()
	res, err := svc.Upload(ctx, owner, pdfUpload("Calculus Notes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if res.Status != StatusApproved {
		t.Errorf("status = %q, want %q", res.Status, StatusApproved)
	}
	if !res.FileAvailable() {
		t.Error("FileAvailable() = false after upload")
	}
	if res.Downloads != 0 {
		t.Errorf("downloads = %d, want 0", res.Downloads)
	}
	if res.OwnerID.Hex() != owner {
		t.Errorf("owner = %s, want %s", res.OwnerID.Hex(), owner)
	}

	// An upload that returned a record must be immediately downloadable
	result, err := svc.Download(ctx, res.ID.Hex())
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(result.Data) != "%PDF-1.4 notes" {
		t.Errorf("Download() data = %q", result.Data)
	}
	if result.ContentType != "application/pdf" {
		t.Errorf("Download() content type = %q", result.ContentType)
	}
	if result.Filename != "notes.pdf" {
		t.Errorf("Download() filename = %q", result.Filename)
	}
	if result.Downloads != 1 {
		t.Errorf("Download() count = %d, want 1", result.Downloads)
	}
}

func TestUploadValidation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	owner := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		mutate func(in *UploadInput)
	}{
		{"missing title", func(in *UploadInput) { in.Title = "  " }},
		{"no file", func(in *UploadInput) { in.Data = nil }},
		{"oversize", func(in *UploadInput) { in.Data = make([]byte, 11*1024*1024) }},
		{"disallowed type", func(in *UploadInput) { in.ContentType = "application/x-msdownload" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := pdfUpload("Valid Title")
			tt.mutate(&in)
			_, err := svc.Upload(ctx, owner, in)
			if !IsValidation(err) {
				t.Errorf("Upload() error = %v, want ValidationError", err)
			}
		})
	}

	if len(repo.resources) != 0 {
		t.Errorf("rejected uploads left %d records behind", len(repo.resources))
	}
}

func TestUploadStorageFailure(t *testing.T) {
	svc, repo, blobs := newTestService(t)
	blobs.failPut = true

	_, err := svc.Upload(context.Background(), primitive.NewObjectID().Hex(), pdfUpload("Doomed"))
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("Upload() error = %v, want ErrStorageWrite", err)
	}
	// No record may reference a blob that was never stored
	if len(repo.resources) != 0 {
		t.Errorf("failed upload created %d records", len(repo.resources))
	}
}

func TestDownloadNoFileNoIO(t *testing.T) {
	svc, repo, blobs := newTestService(t)
	ctx := context.Background()

	// Pre-upgrade record: no blob ref, no legacy path
	res := &Resource{Title: "Old Notes", Subject: "General", Status: StatusApproved}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Download(ctx, res.ID.Hex())
	if !errors.Is(err, ErrFileNotAvailable) {
		t.Fatalf("Download() error = %v, want ErrFileNotAvailable", err)
	}
	if blobs.gets != 0 {
		t.Errorf("blob store was queried %d times, want 0", blobs.gets)
	}
	got, _ := repo.Get(ctx, res.ID.Hex())
	if got.Downloads != 0 {
		t.Errorf("downloads = %d after failed download, want 0", got.Downloads)
	}
}

func TestDownloadCorruptedRecord(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	res := &Resource{Title: "Ghost", Subject: "General", Status: StatusApproved, BlobRef: "ref-gone"}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Download(ctx, res.ID.Hex())
	if !errors.Is(err, ErrFileCorrupted) {
		t.Fatalf("Download() error = %v, want ErrFileCorrupted", err)
	}
	got, _ := repo.Get(ctx, res.ID.Hex())
	if got.Downloads != 0 {
		t.Errorf("downloads = %d after corrupted download, want 0", got.Downloads)
	}
}

func TestDownloadRecordNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Download(context.Background(), primitive.NewObjectID().Hex())
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Download() error = %v, want ErrRecordNotFound", err)
	}
}

func TestConcurrentDownloadsCountEveryServe(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Upload(ctx, primitive.NewObjectID().Hex(), pdfUpload("Popular Notes"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.ID.Hex()

	// Pre-existing count
	for i := 0; i < 10; i++ {
		if _, err := repo.IncrementDownloads(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Download(ctx, id); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Download() error = %v", err)
	}

	got, _ := repo.Get(ctx, id)
	if got.Downloads != 10+n {
		t.Errorf("downloads = %d, want %d", got.Downloads, 10+n)
	}
}

func TestUpdateCannotTouchProtectedFields(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	res, err := svc.Upload(ctx, owner.Hex(), pdfUpload("Original Title"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.ID.Hex()
	actor := &utils.UserClaims{UserID: owner.Hex(), Role: utils.RoleStudent}

	updated, err := svc.Update(ctx, id, actor, map[string]interface{}{
		"title":     "New Title",
		"blob_ref":  "other-ref",
		"downloads": 999,
		"_id":       "different-id",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "New Title" {
		t.Errorf("title = %q, want New Title", updated.Title)
	}

	stored, _ := repo.Get(ctx, id)
	if stored.BlobRef != res.BlobRef {
		t.Errorf("blob_ref changed from %q to %q", res.BlobRef, stored.BlobRef)
	}
	if stored.Downloads != 0 {
		t.Errorf("downloads changed to %d", stored.Downloads)
	}
	if stored.ID != res.ID {
		t.Errorf("id changed from %s to %s", res.ID.Hex(), stored.ID.Hex())
	}
}

func TestUpdateAuthorization(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	res, err := svc.Upload(ctx, owner.Hex(), pdfUpload("Owned Notes"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.ID.Hex()
	fields := map[string]interface{}{"title": "Renamed"}

	tests := []struct {
		name    string
		actor   *utils.UserClaims
		wantErr error
	}{
		{"owner allowed", &utils.UserClaims{UserID: owner.Hex(), Role: utils.RoleStudent}, nil},
		{"admin allowed", &utils.UserClaims{UserID: primitive.NewObjectID().Hex(), Role: utils.RoleAdmin}, nil},
		{"stranger forbidden", &utils.UserClaims{UserID: primitive.NewObjectID().Hex(), Role: utils.RoleFaculty}, ErrForbidden},
		{"anonymous forbidden", nil, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, id, tt.actor, fields)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLegacyDownload(t *testing.T) {
	legacyDir := t.TempDir()
	repo := newFakeRepo()
	blobs := newFakeBlobStore()
	svc := NewResourceService(repo, &fakeSettings{enabled: true}, blobs, zap.NewNop(), testConfig(legacyDir)).(*ResourceServiceImpl)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(legacyDir, "1699999_old.pdf"), []byte("legacy bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := &Resource{
		Title:      "Pre-migration Notes",
		Subject:    "General",
		Status:     StatusApproved,
		LegacyPath: "/uploads/1699999_old.pdf",
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Download(ctx, res.ID.Hex())
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(result.Data) != "legacy bytes" {
		t.Errorf("Download() data = %q", result.Data)
	}
	if result.ContentType != "application/octet-stream" {
		t.Errorf("content type = %q, want application/octet-stream default", result.ContentType)
	}
	if result.Downloads != 1 {
		t.Errorf("downloads = %d, want 1", result.Downloads)
	}
}

func TestLegacyPathTraversalRejected(t *testing.T) {
	legacyDir := t.TempDir()

	// A secret outside the uploads root must stay out of reach
	outside := filepath.Join(filepath.Dir(legacyDir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepo()
	svc := NewResourceService(repo, &fakeSettings{enabled: true}, newFakeBlobStore(), zap.NewNop(), testConfig(legacyDir)).(*ResourceServiceImpl)
	ctx := context.Background()

	res := &Resource{
		Title:      "Evil",
		Subject:    "General",
		Status:     StatusApproved,
		LegacyPath: "../secret.txt",
	}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Download(ctx, res.ID.Hex())
	if !errors.Is(err, ErrFileNotAvailable) {
		t.Fatalf("Download() error = %v, want ErrFileNotAvailable", err)
	}
	got, _ := repo.Get(ctx, res.ID.Hex())
	if got.Downloads != 0 {
		t.Errorf("downloads = %d after rejected download, want 0", got.Downloads)
	}
}

func TestLegacyMissingFile(t *testing.T) {
	repo := newFakeRepo()
	svc := NewResourceService(repo, &fakeSettings{enabled: true}, newFakeBlobStore(), zap.NewNop(), testConfig(t.TempDir())).(*ResourceServiceImpl)
	ctx := context.Background()

	res := &Resource{Title: "Gone", Subject: "General", Status: StatusApproved, LegacyPath: "no-such-file.pdf"}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Download(ctx, res.ID.Hex())
	if !errors.Is(err, ErrFileNotAvailable) {
		t.Fatalf("Download() error = %v, want ErrFileNotAvailable", err)
	}
}

func TestDecommissionLegacy(t *testing.T) {
	legacyDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(legacyDir, "old.pdf"), []byte("still here"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepo()
	settings := &fakeSettings{enabled: true}
	svc := NewResourceService(repo, settings, newFakeBlobStore(), zap.NewNop(), testConfig(legacyDir)).(*ResourceServiceImpl)
	ctx := context.Background()

	res := &Resource{Title: "Legacy Notes", Subject: "General", Status: StatusApproved, LegacyPath: "old.pdf"}
	if err := repo.Create(ctx, res); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Download(ctx, res.ID.Hex()); err != nil {
		t.Fatalf("Download() before decommission error = %v", err)
	}

	if err := svc.DecommissionLegacy(ctx, "admin-1"); err != nil {
		t.Fatalf("DecommissionLegacy() error = %v", err)
	}

	if _, err := svc.Download(ctx, res.ID.Hex()); !errors.Is(err, ErrFileNotAvailable) {
		t.Fatalf("Download() after decommission error = %v, want ErrFileNotAvailable", err)
	}
}

func TestDeleteCascadesBlob(t *testing.T) {
	svc, repo, blobs := newTestService(t)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	res, err := svc.Upload(ctx, owner.Hex(), pdfUpload("Doomed Notes"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.ID.Hex()
	actor := &utils.UserClaims{UserID: owner.Hex(), Role: utils.RoleStudent}

	if err := svc.Delete(ctx, id, actor); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.Get(ctx, id); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrRecordNotFound", err)
	}
	if _, err := blobs.Get(ctx, res.BlobRef); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("blob Get() after cascade error = %v, want blob.ErrNotFound", err)
	}
}

func TestStorageReport(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, primitive.NewObjectID().Hex(), pdfUpload("Stored")); err != nil {
		t.Fatal(err)
	}
	repo.Create(ctx, &Resource{Title: "Legacy", Subject: "General", Status: StatusApproved, LegacyPath: "a.pdf"})
	repo.Create(ctx, &Resource{Title: "Missing", Subject: "General", Status: StatusApproved})

	report, err := svc.StorageReport(ctx)
	if err != nil {
		t.Fatalf("StorageReport() error = %v", err)
	}
	if report.Total != 3 || report.WithBlob != 1 || report.LegacyOnly != 1 || report.Unavailable != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Missing) != 1 || report.Missing[0].Title != "Missing" {
		t.Errorf("missing list = %+v", report.Missing)
	}
}
