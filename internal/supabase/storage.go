package supabase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return &StorageClient{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// ThumbnailPath is the object path of a project's preview image.
func ThumbnailPath(projectID string) string {
	return fmt.Sprintf("projects/%s/thumbnail.png", projectID)
}

// UploadThumbnail stores a PNG preview for the project, replacing any earlier
// one, and returns its public URL.
func (s *StorageClient) UploadThumbnail(ctx context.Context, projectID string, data []byte) (string, error) {
	path := ThumbnailPath(projectID)
	contentType := "image/png"
	cacheControl := "60"
	upsert := true

	err := RetryWithBackoff(ctx, func() error {
		_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
			ContentType:  &contentType,
			CacheControl: &cacheControl,
			Upsert:       &upsert,
		})
		return err
	}, 3)
	if err != nil {
		return "", fmt.Errorf("failed to upload thumbnail: %w", err)
	}

	// versioned so clients pick up the replaced object
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s?v=%s", s.GetPublicURL(path), hex.EncodeToString(sum[:6])), nil
}

func (s *StorageClient) GetPublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}
