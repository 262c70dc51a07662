package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// GCSStore хранит изображения объектами в бакете Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSClient создаёт клиент GCS. credentialsFile может быть пустым (ADC).
func NewGCSClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if f := strings.TrimSpace(credentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return client, nil
}

// NewGCSStore оборачивает готовый клиент.
func NewGCSStore(client *storage.Client, bucket string) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("gcs client is nil: %w", domain.ErrImageStore)
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is empty: %w", domain.ErrImageStore)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put загружает объект и возвращает его имя внутри бакета.
func (s *GCSStore) Put(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	obj, err := cleanName(name)
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(obj).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload image to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gcs upload: %w", err)
	}
	return obj, nil
}

// Delete удаляет объект; отсутствующий объект ошибкой не считается.
func (s *GCSStore) Delete(ctx context.Context, name string) error {
	obj, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucket).Object(obj).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs image: %w", err)
	}
	return nil
}

// PublicURL возвращает адрес объекта для публичного бакета.
func (s *GCSStore) PublicURL(name string) string {
	if name == "" {
		return ""
	}
	return "https://storage.googleapis.com/" + s.bucket + "/" + strings.TrimPrefix(name, "/")
}

// Close освобождает клиент GCS.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ domain.ImageStore = (*GCSStore)(nil)
