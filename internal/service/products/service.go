package products

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/validation"
)

const (
	maxNameLength = 255
	// MaxImageSize — предельный размер изображения товара (2048 KB).
	MaxImageSize = 2048 * 1024
	imagePrefix  = "images/"
)

// allowedImageTypes сопоставляет распознанный MIME-тип расширению файла.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Upload — загруженный файл изображения.
type Upload struct {
	Filename string
	Data     []byte
}

// Input — поля товара из запроса. nil означает, что поле не передано.
type Input struct {
	Name  *string
	Price *string
	Image *Upload
}

// Service управляет каталогом и служит CatalogLookup для позиций заказа.
type Service struct {
	repo   domain.ProductRepository
	images domain.ImageStore
	logger *log.Entry
}

// NewService создаёт сервис товаров.
func NewService(repo domain.ProductRepository, images domain.ImageStore, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "products")
	}
	return &Service{repo: repo, images: images, logger: logger}
}

// List возвращает все не удалённые товары.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// Get возвращает видимый товар.
func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// Resolve реализует domain.CatalogLookup и игнорирует отметку удаления:
// снятый с продажи товар остаётся доступным для исторических и новых заказов.
func (s *Service) Resolve(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetWithDeleted(ctx, id)
}

// Create сохраняет изображение, затем строку товара.
func (s *Service) Create(ctx context.Context, in Input) (domain.Product, error) {
	var product domain.Product
	contentType, err := apply(&product, in, true)
	if err != nil {
		return domain.Product{}, err
	}

	path, err := s.storeImage(ctx, in.Image, contentType)
	if err != nil {
		return domain.Product{}, err
	}
	product.Image = path

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		s.discardImage(ctx, path)
		return domain.Product{}, err
	}

	s.logger.WithField("product_id", created.ID).Info("product created")
	return created, nil
}

// Update применяет переданные поля. Новое изображение заменяет старое,
// старый файл удаляется после успешного сохранения.
func (s *Service) Update(ctx context.Context, id int64, in Input) (domain.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	contentType, err := apply(&product, in, false)
	if err != nil {
		return domain.Product{}, err
	}

	previous := product.Image
	if in.Image != nil {
		path, err := s.storeImage(ctx, in.Image, contentType)
		if err != nil {
			return domain.Product{}, err
		}
		product.Image = path
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		if product.Image != previous {
			s.discardImage(ctx, product.Image)
		}
		return domain.Product{}, err
	}

	if updated.Image != previous && previous != "" {
		s.discardImage(ctx, previous)
	}

	s.logger.WithField("product_id", id).Info("product updated")
	return updated, nil
}

// Delete помечает товар удалённым; позиции заказов сохраняют ссылку.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// Restore снимает отметку удаления.
func (s *Service) Restore(ctx context.Context, id int64) error {
	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product restored")
	return nil
}

func (s *Service) storeImage(ctx context.Context, upload *Upload, contentType string) (string, error) {
	if upload == nil {
		return "", nil
	}
	if s.images == nil {
		return "", fmt.Errorf("image store is not configured: %w", domain.ErrImageStore)
	}

	name := imagePrefix + uuid.NewString() + allowedImageTypes[contentType]
	path, err := s.images.Put(ctx, name, contentType, bytes.NewReader(upload.Data))
	if err != nil {
		return "", fmt.Errorf("store product image: %w", err)
	}
	return path, nil
}

func (s *Service) discardImage(ctx context.Context, path string) {
	if s.images == nil || path == "" {
		return
	}
	if err := s.images.Delete(ctx, path); err != nil {
		s.logger.WithError(err).WithField("image", path).Warn("failed to delete product image")
	}
}

// apply проверяет Input и переносит поля в product. Возвращает MIME-тип изображения.
func apply(product *domain.Product, in Input, required bool) (string, error) {
	check := validation.New()

	if check.Required("name", in.Name, required) {
		check.MaxLen("name", *in.Name, maxNameLength)
		if check.Valid("name") {
			product.Name = strings.TrimSpace(*in.Name)
		}
	}

	if check.Required("price", in.Price, required) {
		if price, ok := check.Price("price", *in.Price); ok {
			product.Price = price
		}
	}

	contentType := ""
	switch {
	case in.Image == nil && required:
		check.Fail("image", "The image field is required.")
	case in.Image != nil:
		contentType = checkImage(check, in.Image)
	}

	if err := check.Err(); err != nil {
		return "", fmt.Errorf("product input: %w", err)
	}
	return contentType, nil
}

func checkImage(check *validation.Checker, upload *Upload) string {
	if len(upload.Data) == 0 {
		check.Fail("image", "The image field must be an image.")
		return ""
	}
	if len(upload.Data) > MaxImageSize {
		check.Fail("image", "The image field must not be greater than 2048 kilobytes.")
		return ""
	}

	contentType := http.DetectContentType(upload.Data)
	if _, ok := allowedImageTypes[contentType]; !ok {
		check.Fail("image", "The image field must be a file of type: jpeg, png, jpg, gif.")
		return ""
	}
	return contentType
}

var _ domain.CatalogLookup = (*Service)(nil)
