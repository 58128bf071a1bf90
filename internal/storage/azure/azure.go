// Package azure implements the Azure Blob Storage attachment backend.
// Uploads go directly to Blob Storage; downloads are served via time-limited
// SAS (Shared Access Signature) URLs generated on demand rather than proxied
// through the API.
package azure

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/storage"
)

func init() {
	storage.Register("azure", func(cfg *config.Config) (storage.Store, error) {
		return New(&cfg.Storage.Azure)
	})
}

// Store implements the attachment Store interface on Azure Blob Storage.
type Store struct {
	client        *azblob.Client
	containerName string
	accountName   string
	accountKey    string
}

// New creates an Azure Blob attachment store using shared key credentials.
func New(cfg *config.AzureStorageConfig) (*Store, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}
	if cfg.ContainerName == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &Store{
		client:        client,
		containerName: cfg.ContainerName,
		accountName:   cfg.AccountName,
		accountKey:    cfg.AccountKey,
	}, nil
}

// Put uploads an attachment with its content type and SHA-256 hash stored as
// blob metadata.
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.Attachment, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	hasher := sha256.New()
	hasher.Write(data)
	checksum := hex.EncodeToString(hasher.Sum(nil))

	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlockBlobClient(key)
	_, err = blobClient.Upload(ctx, streaming.NopCloser(bytes.NewReader(data)), &blockblob.UploadOptions{
		Metadata: map[string]*string{
			"sha256":       &checksum,
			"content_type": &contentType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Azure Blob: %w", err)
	}

	return &storage.Attachment{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
		Checksum:    checksum,
	}, nil
}

// Get retrieves an attachment body from Azure Blob Storage.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)
	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download from Azure Blob: %w", err)
	}
	return resp.Body, nil
}

// Delete removes an attachment from Azure Blob Storage.
func (s *Store) Delete(ctx context.Context, key string) error {
	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)
	if _, err := blobClient.Delete(ctx, nil); err != nil {
		// The SDK errors for missing blobs; a missing blob is already deleted.
		exists, checkErr := s.Exists(ctx, key)
		if checkErr == nil && !exists {
			return nil
		}
		return fmt.Errorf("failed to delete from Azure Blob: %w", err)
	}
	return nil
}

// URL returns a SAS URL for direct blob access, valid for ttl.
func (s *Store) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("attachment not found: %s", key)
	}

	credential, err := azblob.NewSharedKeyCredential(s.accountName, s.accountKey)
	if err != nil {
		return "", fmt.Errorf("failed to create credential for SAS: %w", err)
	}

	startTime := time.Now().UTC().Add(-5 * time.Minute) // allow for clock skew
	sasQueryParams, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     startTime,
		ExpiryTime:    time.Now().UTC().Add(ttl),
		Permissions:   (&sas.BlobPermissions{Read: true}).String(),
		ContainerName: s.containerName,
		BlobName:      key,
	}.SignWithSharedKey(credential)
	if err != nil {
		return "", fmt.Errorf("failed to generate SAS token: %w", err)
	}

	blobURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s",
		s.accountName, s.containerName, url.PathEscape(key))
	return fmt.Sprintf("%s?%s", blobURL, sasQueryParams.Encode()), nil
}

// Exists reports whether a blob is present at the key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)
	if _, err := blobClient.GetProperties(ctx, nil); err != nil {
		return false, nil
	}
	return true, nil
}
