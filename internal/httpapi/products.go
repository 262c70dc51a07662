package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
)

const (
	imageField       = "image"
	maxMultipartBody = products.MaxImageSize + 1<<20
)

var errImageTooLarge = errors.New("image exceeds size limit")

// productPayload — JSON-форма товара. price принимает и строку, и число.
type productPayload struct {
	Name  *string         `json:"name"`
	Price json.RawMessage `json:"price"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	list, err := s.products.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]productView, 0, len(list))
	for _, p := range list {
		views = append(views, s.toProductView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := readProductInput(r)
	if err != nil {
		s.badProductBody(w, r, err)
		return
	}
	created, err := s.products.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toProductView(created))
}

func (s *Server) showProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityProduct)
	if !ok {
		return
	}
	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toProductView(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.withID(w, r, domain.EntityProduct)
	if !ok {
		return
	}
	in, err := readProductInput(r)
	if err != nil {
		s.badProductBody(w, r, err)
		return
	}
	updated, err := s.products.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toProductView(updated))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, domain.EntityProduct, "deleted", s.products.Delete)
}

func (s *Server) restoreProduct(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, domain.EntityProduct, "restored", s.products.Restore)
}

func (s *Server) badProductBody(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errImageTooLarge) {
		verr := domain.NewValidationError()
		verr.Add(imageField, "The image field must not be greater than 2048 kilobytes.")
		s.writeError(w, r, verr)
		return
	}
	s.badJSON(w, r, err)
}

// readProductInput принимает multipart/form-data (поля name, price и файл image)
// или JSON без изображения.
func readProductInput(r *http.Request) (products.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipartProduct(r)
	}

	var payload productPayload
	if err := decodeJSON(r, &payload); err != nil {
		return products.Input{}, err
	}
	in := products.Input{Name: payload.Name}
	price, err := rawPrice(payload.Price)
	if err != nil {
		return products.Input{}, err
	}
	in.Price = price
	return in, nil
}

func readMultipartProduct(r *http.Request) (products.Input, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return products.Input{}, errImageTooLarge
		}
		return products.Input{}, fmt.Errorf("parse multipart form: %w", err)
	}

	var in products.Input
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		in.Name = &values[0]
	}
	if values, ok := r.MultipartForm.Value["price"]; ok && len(values) > 0 {
		in.Price = &values[0]
	}

	file, header, err := r.FormFile(imageField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return products.Input{}, fmt.Errorf("read image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, products.MaxImageSize+1))
	if err != nil {
		return products.Input{}, fmt.Errorf("read image: %w", err)
	}
	in.Image = &products.Upload{Filename: header.Filename, Data: data}
	return in, nil
}

// rawPrice приводит JSON-значение price к строке; null и отсутствие поля дают nil.
func rawPrice(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return &text, nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return nil, fmt.Errorf("price must be a string or number: %w", err)
	}
	text := strings.TrimSpace(number.String())
	return &text, nil
}
