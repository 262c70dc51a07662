package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// IdempotencyHeader — заголовок, по которому повтор запроса отдаёт сохранённый ответ.
const IdempotencyHeader = "Idempotency-Key"

// idempotent сохраняет ответ обработчика по Idempotency-Key. Без заголовка
// или без репозитория запрос проходит как есть.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if s.idem == nil || key == "" {
			next(w, r)
			return
		}
		logger := requestLogger(r, s.logger).WithField("idempotency_key", key)

		body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxJSONBody))
		if err != nil {
			s.badJSON(w, r, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		record, err := s.idem.CreateProcessing(r.Context(), key, requestHash(r, body), time.Now().UTC().Add(s.idempotencyTTL))
		if err != nil {
			s.replay(w, logger, record, err)
			return
		}

		// Ключ фиксируется и после отключения клиента, и после паники обработчика.
		settleCtx := context.WithoutCancel(r.Context())
		defer func() {
			if rec := recover(); rec != nil {
				body, _ := json.Marshal(messageResponse{Message: "Internal server error."})
				if err := s.idem.MarkFailed(settleCtx, key, body, http.StatusInternalServerError); err != nil {
					logger.WithError(err).Warn("failed to release idempotency key after panic")
				}
				panic(rec)
			}
		}()

		capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next(capture, r)

		store := s.idem.MarkDone
		if capture.status >= http.StatusInternalServerError {
			store = s.idem.MarkFailed
		}
		if err := store(settleCtx, key, capture.body.Bytes(), capture.status); err != nil {
			logger.WithError(err).Warn("failed to store idempotent response")
		}
	}
}

func (s *Server) replay(w http.ResponseWriter, logger *log.Entry, record domain.IdempotencyRecord, createErr error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		writeMessage(w, http.StatusConflict, "Idempotency key is already used with a different request.")
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		if !record.Finished() {
			writeMessage(w, http.StatusConflict, "A request with this idempotency key is still processing.")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
	default:
		logger.WithError(createErr).Warn("failed to create idempotency record")
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// requestHash связывает ключ с методом, путём и телом запроса.
func requestHash(r *http.Request, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(r.Method))
	sum.Write([]byte{0})
	sum.Write([]byte(r.URL.Path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}
