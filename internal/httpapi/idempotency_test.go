package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// cancelAwareKeys отказывает в записи по отменённому контексту, как это делает
// драйвер базы данных.
type cancelAwareKeys struct {
	domain.IdempotencyRepository
}

func (k cancelAwareKeys) MarkDone(ctx context.Context, key string, body []byte, status int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.IdempotencyRepository.MarkDone(ctx, key, body, status)
}

func (k cancelAwareKeys) MarkFailed(ctx context.Context, key string, body []byte, status int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.IdempotencyRepository.MarkFailed(ctx, key, body, status)
}

func idempotencyServer(repo domain.IdempotencyRepository) *Server {
	return &Server{
		logger:         log.WithField("test", "idempotency"),
		idem:           repo,
		idempotencyTTL: time.Hour,
	}
}

func keyedRequest(ctx context.Context, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders/create", strings.NewReader(`{"client_id":1}`))
	req.Header.Set(IdempotencyHeader, key)
	return req.WithContext(ctx)
}

func TestIdempotent_PanicMarksKeyFailed(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	s := idempotencyServer(repo)

	panicking := s.idempotent(func(http.ResponseWriter, *http.Request) { panic("boom") })
	require.PanicsWithValue(t, "boom", func() {
		panicking(httptest.NewRecorder(), keyedRequest(context.Background(), "k-panic"))
	})

	record, err := repo.Get(context.Background(), "k-panic")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusFailed, record.Status)
	require.Equal(t, http.StatusInternalServerError, record.HTTPStatus)

	called := false
	retry := s.idempotent(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})
	rec := httptest.NewRecorder()
	retry(rec, keyedRequest(context.Background(), "k-panic"))
	require.False(t, called, "stored failure is replayed")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
}

func TestIdempotent_StoresResultAfterClientDisconnect(t *testing.T) {
	repo := cancelAwareKeys{IdempotencyRepository: memory.NewIdempotencyRepository()}
	s := idempotencyServer(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := s.idempotent(func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		writeMessage(w, http.StatusCreated, "created")
	})
	handler(httptest.NewRecorder(), keyedRequest(ctx, "k-gone"))

	record, err := repo.Get(context.Background(), "k-gone")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, record.Status)
	require.Equal(t, http.StatusCreated, record.HTTPStatus)
	require.JSONEq(t, `{"message":"created"}`, string(record.ResponseBody))
}
