package intake

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightstock/imagery-backend/pkg/config"
	"github.com/brightstock/imagery-backend/pkg/db/models"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
)

type stubRepo struct {
	files      map[uuid.UUID]*models.IntakeFile
	createErr  error
	deleted    []uuid.UUID
	previewErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{files: map[uuid.UUID]*models.IntakeFile{}}
}

func (r *stubRepo) Create(ctx context.Context, file *models.IntakeFile) (*models.IntakeFile, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.files[file.ID] = file
	return file, nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.IntakeFile, error) {
	file, ok := r.files[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (r *stubRepo) FindByGCSKey(ctx context.Context, gcsKey string) (*models.IntakeFile, error) {
	for _, file := range r.files {
		if file.GCSKey == gcsKey {
			return file, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]models.IntakeFile, error) {
	var out []models.IntakeFile
	for _, file := range r.files {
		if file.SessionID == sessionID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (r *stubRepo) CountPending(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	for _, file := range r.files {
		if file.SessionID == sessionID && file.Status == enums.IntakeStatusPending {
			count++
		}
	}
	return count, nil
}

func (r *stubRepo) MarkUploaded(ctx context.Context, id uuid.UUID, uploadedAt time.Time) error {
	file, ok := r.files[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	file.Status = enums.IntakeStatusUploaded
	file.UploadedAt = &uploadedAt
	return nil
}

func (r *stubRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	file, ok := r.files[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	file.Status = enums.IntakeStatusFailed
	file.FailureReason = &reason
	return nil
}

func (r *stubRepo) AttachPreview(ctx context.Context, id uuid.UUID, previewKey string) (bool, error) {
	if r.previewErr != nil {
		return false, r.previewErr
	}
	file, ok := r.files[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	first := len(file.PreviewKeys) == 0
	file.PreviewKeys = append(file.PreviewKeys, previewKey)
	return first, nil
}

func (r *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.files, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type stubGCS struct {
	signErr    error
	deleted    []string
	signedPUTs []string
}

func (g *stubGCS) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if g.signErr != nil {
		return "", g.signErr
	}
	g.signedPUTs = append(g.signedPUTs, object)
	return "https://storage.test/" + bucket + "/" + object + "?sig=put", nil
}

func (g *stubGCS) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + object + "?sig=get", nil
}

func (g *stubGCS) DeleteObject(ctx context.Context, bucket, object string) error {
	g.deleted = append(g.deleted, object)
	return nil
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) sink(evt Event) {
	r.events = append(r.events, evt)
}

func (r *eventRecorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Kind)
	}
	return out
}

func newTestService(t *testing.T) (Service, *stubRepo, *stubGCS, *eventRecorder) {
	t.Helper()
	repo := newStubRepo()
	gcs := &stubGCS{}
	rec := &eventRecorder{}
	svc, err := NewService(ServiceParams{
		Repo: repo,
		GCS:  gcs,
		Bucket: config.GCSConfig{
			BucketName:        "intake-bucket",
			UploadURLExpiry:   15 * time.Minute,
			DownloadURLExpiry: 15 * time.Minute,
		},
		Intake: config.IntakeConfig{MaxUploadMB: 1},
		Sink:   rec.sink,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, gcs, rec
}

func TestRegisterMintsUploadURL(t *testing.T) {
	svc, repo, _, rec := newTestService(t)
	sessionID := uuid.New()

	file, err := svc.Register(context.Background(), RegisterInput{
		SessionID:  sessionID,
		ProviderID: uuid.New(),
		FileName:   "beach sunset.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  2048,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !strings.HasPrefix(file.GCSKey, "intake/"+sessionID.String()+"/") {
		t.Fatalf("unexpected gcs key %q", file.GCSKey)
	}
	if !strings.HasSuffix(file.GCSKey, "/beach-sunset.jpg") {
		t.Fatalf("file name not sanitized in key %q", file.GCSKey)
	}
	if file.UploadURL == "" {
		t.Fatal("expected signed upload url")
	}
	if _, ok := repo.files[file.ID]; !ok {
		t.Fatal("expected persisted intake row")
	}
	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != EventFileAdded {
		t.Fatalf("unexpected events %v", kinds)
	}
}

func TestRegisterSniffsMimeFromHead(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	// PNG magic bytes.
	head := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	file, err := svc.Register(context.Background(), RegisterInput{
		SessionID:  uuid.New(),
		ProviderID: uuid.New(),
		FileName:   "shot.png",
		SizeBytes:  512,
		Head:       head,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if file.MimeType != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", file.MimeType)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sessionID := uuid.New()
	providerID := uuid.New()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing session", RegisterInput{ProviderID: providerID, FileName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 1}},
		{"missing file name", RegisterInput{SessionID: sessionID, ProviderID: providerID, MimeType: "image/jpeg", SizeBytes: 1}},
		{"zero size", RegisterInput{SessionID: sessionID, ProviderID: providerID, FileName: "a.jpg", MimeType: "image/jpeg"}},
		{"oversize", RegisterInput{SessionID: sessionID, ProviderID: providerID, FileName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 2 * 1024 * 1024}},
		{"non-imagery mime", RegisterInput{SessionID: sessionID, ProviderID: providerID, FileName: "a.pdf", MimeType: "application/pdf", SizeBytes: 1}},
		{"no mime and no head", RegisterInput{SessionID: sessionID, ProviderID: providerID, FileName: "a.jpg", SizeBytes: 1}},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.input); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		} else if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation code, got %s", tc.name, code)
		}
	}
}

func TestRegisterRollsBackRowWhenSigningFails(t *testing.T) {
	svc, repo, gcs, _ := newTestService(t)
	gcs.signErr = errors.New("signer unavailable")

	_, err := svc.Register(context.Background(), RegisterInput{
		SessionID:  uuid.New(),
		ProviderID: uuid.New(),
		FileName:   "a.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  10,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.files) != 0 || len(repo.deleted) != 1 {
		t.Fatalf("expected row rollback, files=%d deleted=%d", len(repo.files), len(repo.deleted))
	}
}

func TestRemoveDeletesRowAndObject(t *testing.T) {
	svc, repo, gcs, rec := newTestService(t)
	sessionID := uuid.New()

	file, err := svc.Register(context.Background(), RegisterInput{
		SessionID:  sessionID,
		ProviderID: uuid.New(),
		FileName:   "a.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  10,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.Remove(context.Background(), sessionID, file.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(repo.files) != 0 {
		t.Fatal("expected row deleted")
	}
	if len(gcs.deleted) != 1 || gcs.deleted[0] != file.GCSKey {
		t.Fatalf("expected object delete for %q, got %v", file.GCSKey, gcs.deleted)
	}
	if kinds := rec.kinds(); kinds[len(kinds)-1] != EventFileRemoved {
		t.Fatalf("unexpected events %v", kinds)
	}

	// Removing a file from a different session is a not-found.
	if err := svc.Remove(context.Background(), uuid.New(), file.ID); err == nil {
		t.Fatal("expected error")
	}
}

func TestAttachThumbnailEmitsOnlyFirstPreview(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	sessionID := uuid.New()

	file, err := svc.Register(context.Background(), RegisterInput{
		SessionID:  sessionID,
		ProviderID: uuid.New(),
		FileName:   "a.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  10,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.AttachThumbnail(context.Background(), file.ID, "previews/a-small.jpg"); err != nil {
		t.Fatalf("attach thumbnail: %v", err)
	}
	if err := svc.AttachThumbnail(context.Background(), file.ID, "previews/a-large.jpg"); err != nil {
		t.Fatalf("attach second thumbnail: %v", err)
	}

	var thumbnails []Event
	for _, evt := range rec.events {
		if evt.Kind == EventThumbnailGenerated {
			thumbnails = append(thumbnails, evt)
		}
	}
	if len(thumbnails) != 1 {
		t.Fatalf("expected a single thumbnail event, got %d", len(thumbnails))
	}
	if !strings.Contains(thumbnails[0].PreviewURL, "a-small.jpg") {
		t.Fatalf("unexpected preview url %q", thumbnails[0].PreviewURL)
	}
}

func TestSettleUploadEmitsCompleteWhenAllSettled(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	sessionID := uuid.New()

	var keys []string
	for _, name := range []string{"a.jpg", "b.jpg"} {
		file, err := svc.Register(context.Background(), RegisterInput{
			SessionID:  sessionID,
			ProviderID: uuid.New(),
			FileName:   name,
			MimeType:   "image/jpeg",
			SizeBytes:  10,
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		keys = append(keys, file.GCSKey)
	}

	if err := svc.SettleUpload(context.Background(), keys[0], true, ""); err != nil {
		t.Fatalf("settle first: %v", err)
	}
	for _, evt := range rec.events {
		if evt.Kind == EventComplete {
			t.Fatal("complete emitted with a file still pending")
		}
	}

	if err := svc.SettleUpload(context.Background(), keys[1], false, "object missing"); err != nil {
		t.Fatalf("settle second: %v", err)
	}
	kinds := rec.kinds()
	if kinds[len(kinds)-1] != EventComplete {
		t.Fatalf("expected trailing complete event, got %v", kinds)
	}

	// Settling again is a no-op.
	before := len(rec.events)
	if err := svc.SettleUpload(context.Background(), keys[1], true, ""); err != nil {
		t.Fatalf("resettle: %v", err)
	}
	if len(rec.events) != before {
		t.Fatal("expected no events for already-settled file")
	}
}
