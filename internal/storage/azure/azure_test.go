package azure

import (
	"testing"

	"github.com/societyhub/societyhub/internal/config"
)

func TestNew_RequiresAccountName(t *testing.T) {
	_, err := New(&config.AzureStorageConfig{AccountKey: "a2V5", ContainerName: "attachments"})
	if err == nil {
		t.Error("expected error for missing account name")
	}
}

func TestNew_RequiresAccountKey(t *testing.T) {
	_, err := New(&config.AzureStorageConfig{AccountName: "acct", ContainerName: "attachments"})
	if err == nil {
		t.Error("expected error for missing account key")
	}
}

func TestNew_RequiresContainerName(t *testing.T) {
	_, err := New(&config.AzureStorageConfig{AccountName: "acct", AccountKey: "a2V5"})
	if err == nil {
		t.Error("expected error for missing container name")
	}
}
