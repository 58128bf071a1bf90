package s3

import (
	"testing"

	"github.com/societyhub/societyhub/internal/config"
)

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(&config.S3StorageConfig{Region: "us-east-1"}); err == nil {
		t.Error("expected error for missing bucket")
	}
}

func TestNew_RequiresRegion(t *testing.T) {
	if _, err := New(&config.S3StorageConfig{Bucket: "attachments"}); err == nil {
		t.Error("expected error for missing region")
	}
}
