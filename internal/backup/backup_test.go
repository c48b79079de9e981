package backup

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/teamvault/budgetvault/internal/config"
)

// mockS3Client implements s3Client for testing
type mockS3Client struct {
	putErr      error
	presignErr  error
	presignBase string

	lastBucket string
	lastObject string
	lastFile   string
}

func (m *mockS3Client) FPutObject(ctx context.Context, bucket, objectName, filePath string, opts interface{}) error {
	m.lastBucket = bucket
	m.lastObject = objectName
	m.lastFile = filePath
	return m.putErr
}

func (m *mockS3Client) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	m.lastBucket = bucket
	m.lastObject = objectName
	return url.Parse(m.presignBase + "/" + bucket + "/" + objectName + "?signed=1")
}

func TestS3Uploader_Upload(t *testing.T) {
	mock := &mockS3Client{}
	u := &S3Uploader{client: mock, bucket: "backups", urlExpiry: time.Hour}

	if err := u.Upload(context.Background(), "u1", "/data/ledger.db"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if mock.lastBucket != "backups" {
		t.Errorf("unexpected bucket %q", mock.lastBucket)
	}
	if mock.lastObject != "u1/backup/ledger.db" {
		t.Errorf("unexpected object key %q", mock.lastObject)
	}
	if mock.lastFile != "/data/ledger.db" {
		t.Errorf("unexpected file path %q", mock.lastFile)
	}
}

func TestS3Uploader_UploadError(t *testing.T) {
	mock := &mockS3Client{putErr: errors.New("access denied")}
	u := &S3Uploader{client: mock, bucket: "backups", urlExpiry: time.Hour}

	if err := u.Upload(context.Background(), "u1", "/data/ledger.db"); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3Uploader_PresignedURL(t *testing.T) {
	mock := &mockS3Client{presignBase: "https://s3.example.com"}
	u := &S3Uploader{client: mock, bucket: "backups", urlExpiry: time.Hour}

	signed, expiry, err := u.PresignedURL(context.Background(), "u1")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if signed == "" || mock.lastObject != "u1/backup/ledger.db" {
		t.Errorf("unexpected presigned url %q for object %q", signed, mock.lastObject)
	}
	if time.Until(expiry) > time.Hour || time.Until(expiry) < 55*time.Minute {
		t.Errorf("expiry not near one hour out: %v", expiry)
	}
}

func TestS3Uploader_PresignedURLError(t *testing.T) {
	mock := &mockS3Client{presignErr: errors.New("no such key")}
	u := &S3Uploader{client: mock, bucket: "backups", urlExpiry: time.Hour}

	if _, _, err := u.PresignedURL(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNoopUploader(t *testing.T) {
	var u Uploader = &NoopUploader{}

	if err := u.Upload(context.Background(), "u1", "/data/ledger.db"); err != nil {
		t.Errorf("noop upload must succeed: %v", err)
	}
	if _, _, err := u.PresignedURL(context.Background(), "u1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewUploader_UnconfiguredIsNoop(t *testing.T) {
	u, err := NewUploader(config.BackupConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*NoopUploader); !ok {
		t.Fatalf("expected NoopUploader, got %T", u)
	}
}

func TestNewUploader_ConfiguredIsS3(t *testing.T) {
	u, err := NewUploader(config.BackupConfig{
		Endpoint:  "s3.example.com",
		Bucket:    "backups",
		AccessKey: "access",
		SecretKey: "secret",
		URLExpiry: config.Duration(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*S3Uploader); !ok {
		t.Fatalf("expected S3Uploader, got %T", u)
	}
}
