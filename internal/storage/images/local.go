// Package images хранит изображения товаров на локальном диске или в Google Cloud Storage.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LocalStore пишет файлы в каталог, который HTTP-сервер раздаёт по /storage/.
type LocalStore struct {
	root string
}

// NewLocalStore создаёт каталог root, если его нет.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("image directory is empty: %w", domain.ErrImageStore)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root возвращает каталог хранения.
func (s *LocalStore) Root() string {
	return s.root
}

// Put сохраняет файл атомарно: сначала во временный файл, затем rename.
func (s *LocalStore) Put(_ context.Context, name, _ string, body io.Reader) (string, error) {
	rel, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create image subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move image into place: %w", err)
	}

	return rel, nil
}

// Delete удаляет файл; отсутствующий файл ошибкой не считается.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	rel, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// cleanName запрещает абсолютные пути и выход за пределы корня.
func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(name))
	rel := strings.TrimPrefix(cleaned, "/")
	if rel == "" || rel == "." || name != rel {
		return "", fmt.Errorf("invalid image path %q: %w", name, domain.ErrImageStore)
	}
	return rel, nil
}

var _ domain.ImageStore = (*LocalStore)(nil)
