package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/notification"
	"github.com/vladislavdragonenkov/storefront/internal/service/customers"
	"github.com/vladislavdragonenkov/storefront/internal/service/lineitems"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
	"github.com/vladislavdragonenkov/storefront/internal/storage/images"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (m *recordingMailer) Send(_ context.Context, msg notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	return out
}

type testEnv struct {
	t        *testing.T
	server   *httpapi.Server
	products domain.ProductRepository
	worker   *outbox.Worker
	mailer   *recordingMailer
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	root := t.TempDir()
	imageStore, err := images.NewLocalStore(root)
	require.NoError(t, err)

	customerRepo := memory.NewCustomerRepository(store)
	productRepo := memory.NewProductRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)

	customerSvc := customers.NewService(customerRepo, nil)
	productSvc := products.NewService(productRepo, imageStore, nil)
	manager := lineitems.NewManager(memory.NewLineItemRepository(store), productSvc, store, nil)
	orderSvc := orders.NewService(orders.Dependencies{
		Orders:    memory.NewOrderRepository(store),
		Customers: customerRepo,
		Lookup:    customerSvc,
		Items:     manager,
		Outbox:    outboxRepo,
		Timeline:  memory.NewTimelineRepository(),
		Tx:        store,
	}, nil)

	mailer := &recordingMailer{}
	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetricsWithRegisterer(registry)

	return &testEnv{
		t: t,
		server: httpapi.NewServer(customerSvc, productSvc, orderSvc, httpapi.Options{
			Metrics:     httpMetrics,
			Idempotency: memory.NewIdempotencyRepository(),
			StorageDir:  root,
		}),
		products: productRepo,
		worker:   outbox.NewWorker(outboxRepo, notification.NewDispatcher(mailer, "Pastry Shop", nil), outbox.Config{MaxAttempts: 1}),
		mailer:   mailer,
		registry: registry,
	}
}

func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type clientBody struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	DateOfBirth  string  `json:"date_of_birth"`
	AddressLine2 *string `json:"address_line2"`
	DeletedAt    *string `json:"deleted_at"`
}

type productBody struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	ImageURL string `json:"image_url"`
	Pivot    *struct {
		OrderID   int64 `json:"order_id"`
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	} `json:"pivot"`
}

type orderBody struct {
	ID       int64         `json:"id"`
	ClientID int64         `json:"client_id"`
	Client   clientBody    `json:"client"`
	Products []productBody `json:"products"`
	Total    string        `json:"total"`
}

type messageBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func clientPayload(email string) map[string]any {
	return map[string]any{
		"name":          "Ana",
		"email":         email,
		"phone":         "555-0100",
		"date_of_birth": "1990-01-02",
		"address":       "Main st 1",
		"address_line2": "Apt 4",
		"neighborhood":  "Centro",
		"postal_code":   "12345",
	}
}

func (e *testEnv) createClient(email string) clientBody {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/clients/create", clientPayload(email))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[clientBody](e.t, rec)
}

func (e *testEnv) product(name, price string) domain.Product {
	e.t.Helper()
	p, err := e.products.Create(context.Background(), domain.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Image: "images/" + strings.ToLower(name) + ".png",
	})
	require.NoError(e.t, err)
	return p
}

func items(pairs ...int64) []map[string]int64 {
	out := make([]map[string]int64, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]int64{"id": pairs[i], "quantity": pairs[i+1]})
	}
	return out
}

func quantities(order orderBody) map[int64]int {
	out := make(map[int64]int, len(order.Products))
	for _, p := range order.Products {
		out[p.ID] = p.Pivot.Quantity
	}
	return out
}

func TestClients_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	created := env.createClient("ana@example.com")
	require.Equal(t, "1990-01-02", created.DateOfBirth)
	require.Equal(t, "Apt 4", *created.AddressLine2)

	rec := env.do(http.MethodGet, "/clients/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]clientBody](t, rec), 1)

	rec = env.do(http.MethodPatch, "/api/clients/detail/"+itoa(created.ID), map[string]any{"email": "ana2@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "ana2@example.com", decode[clientBody](t, rec).Email)

	rec = env.do(http.MethodDelete, "/api/clients/delete/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Client deleted successfully.", decode[messageBody](t, rec).Message)

	rec = env.do(http.MethodGet, "/api/clients/detail/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Client not found.", decode[messageBody](t, rec).Message)

	rec = env.do(http.MethodPost, "/api/clients/restore/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Client restored successfully.", decode[messageBody](t, rec).Message)

	rec = env.do(http.MethodPost, "/api/clients/restore/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Client is not deleted.", decode[messageBody](t, rec).Message)
}

func TestClients_ValidationAndConflict(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/clients/create", map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[messageBody](t, rec)
	require.Equal(t, "The address field is required. (and 6 more errors)", body.Message)
	require.Contains(t, body.Errors, "email")
	require.Contains(t, body.Errors, "postal_code")

	env.createClient("ana@example.com")
	rec = env.do(http.MethodPost, "/api/clients/create", clientPayload("ana@example.com"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decode[messageBody](t, rec).Errors, "email")
}

func TestRequests_MalformedAndUnknown(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		code    int
		message string
	}{
		{name: "malformed json", method: http.MethodPost, path: "/api/clients/create", body: "{", code: http.StatusBadRequest, message: "Malformed JSON body."},
		{name: "wrong field type", method: http.MethodPost, path: "/api/clients/create", body: `{"name": 5}`, code: http.StatusUnprocessableEntity, message: "The name field must be a string."},
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing", code: http.StatusNotFound, message: "Not found."},
		{name: "zero id", method: http.MethodGet, path: "/api/orders/detail/0", code: http.StatusNotFound, message: "Order not found."},
		{name: "missing order", method: http.MethodDelete, path: "/api/orders/delete/42", code: http.StatusNotFound, message: "Order not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			require.Equal(t, tt.message, decode[messageBody](t, rec).Message)
		})
	}
}

func TestOrders_CreateUpdateDeleteRestore(t *testing.T) {
	env := newTestEnv(t)
	c1 := env.createClient("c1@example.com")
	p1 := env.product("P1", "5.00")
	p2 := env.product("P2", "7.50")
	p3 := env.product("P3", "3.20")

	rec := env.do(http.MethodPost, "/api/orders/create", map[string]any{
		"client_id": c1.ID,
		"products":  items(p1.ID, 2, p2.ID, 1),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[orderBody](t, rec)
	require.Equal(t, c1.ID, created.ClientID)
	require.Equal(t, "c1@example.com", created.Client.Email)
	require.Equal(t, "17.50", created.Total)
	require.Equal(t, map[int64]int{p1.ID: 2, p2.ID: 1}, quantities(created))
	require.Equal(t, created.ID, created.Products[0].Pivot.OrderID)
	require.Equal(t, "/storage/images/p1.png", created.Products[0].ImageURL)

	env.worker.ProcessOnce(context.Background())
	require.Equal(t, []string{"c1@example.com"}, env.mailer.recipients())

	path := "/api/orders/detail/" + itoa(created.ID)
	rec = env.do(http.MethodPut, path, map[string]any{"products": items(p1.ID, 3, p3.ID, 1)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[orderBody](t, rec)
	require.Equal(t, map[int64]int{p1.ID: 3, p3.ID: 1}, quantities(updated))
	require.Equal(t, "18.20", updated.Total)

	env.worker.ProcessOnce(context.Background())
	require.Len(t, env.mailer.recipients(), 1, "update must not notify")

	rec = env.do(http.MethodDelete, "/api/orders/delete/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Order deleted successfully.", decode[messageBody](t, rec).Message)

	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, nil).Code)
	require.Empty(t, decode[[]orderBody](t, env.do(http.MethodGet, "/api/orders/list", nil)))

	rec = env.do(http.MethodPost, "/api/orders/restore/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Order restored successfully.", decode[messageBody](t, rec).Message)

	rec = env.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[int64]int{p1.ID: 3, p3.ID: 1}, quantities(decode[orderBody](t, rec)))

	rec = env.do(http.MethodGet, path+"/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	timeline := decode[[]struct {
		Type string `json:"type"`
	}](t, rec)
	require.Len(t, timeline, 4)
	require.Equal(t, domain.TimelineOrderCreated, timeline[0].Type)
	require.Equal(t, domain.TimelineOrderRestored, timeline[3].Type)
}

func TestOrders_CreateRejectsInvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	c1 := env.createClient("c1@example.com")
	p1 := env.product("P1", "5.00")

	tests := []struct {
		name    string
		payload map[string]any
		code    int
		field   string
	}{
		{name: "missing client", payload: map[string]any{"products": items(p1.ID, 1)}, code: http.StatusUnprocessableEntity, field: "client_id"},
		{name: "empty products", payload: map[string]any{"client_id": c1.ID, "products": items()}, code: http.StatusUnprocessableEntity, field: "products"},
		{name: "duplicate product", payload: map[string]any{"client_id": c1.ID, "products": items(p1.ID, 1, p1.ID, 2)}, code: http.StatusUnprocessableEntity, field: "products.1.id"},
		{name: "zero quantity", payload: map[string]any{"client_id": c1.ID, "products": items(p1.ID, 0)}, code: http.StatusUnprocessableEntity, field: "products.0.quantity"},
		{name: "quantity as text", payload: map[string]any{"client_id": c1.ID, "products": []map[string]any{{"id": p1.ID, "quantity": "abc"}}}, code: http.StatusUnprocessableEntity, field: "products.quantity"},
		{name: "fractional quantity", payload: map[string]any{"client_id": c1.ID, "products": []map[string]any{{"id": p1.ID, "quantity": 1.5}}}, code: http.StatusUnprocessableEntity, field: "products.quantity"},
		{name: "client id as text", payload: map[string]any{"client_id": "x", "products": items(p1.ID, 1)}, code: http.StatusUnprocessableEntity, field: "client_id"},
		{name: "products not a list", payload: map[string]any{"client_id": c1.ID, "products": "nope"}, code: http.StatusUnprocessableEntity, field: "products"},
		{name: "quantity above column range", payload: map[string]any{"client_id": c1.ID, "products": items(p1.ID, 1<<31)}, code: http.StatusUnprocessableEntity, field: "products.0.quantity"},
		{name: "unknown client", payload: map[string]any{"client_id": 999, "products": items(p1.ID, 1)}, code: http.StatusNotFound},
		{name: "unknown product", payload: map[string]any{"client_id": c1.ID, "products": items(999, 1)}, code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/orders/create", tt.payload)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.field != "" {
				require.Contains(t, decode[messageBody](t, rec).Errors, tt.field)
			}
		})
	}

	broken := env.do(http.MethodPost, "/api/orders/create", `{"client_id": 1, "products": [`)
	require.Equal(t, http.StatusBadRequest, broken.Code)
	require.Equal(t, "Malformed JSON body.", decode[messageBody](t, broken).Message)

	require.Empty(t, decode[[]orderBody](t, env.do(http.MethodGet, "/api/orders/list", nil)))
	env.worker.ProcessOnce(context.Background())
	require.Empty(t, env.mailer.recipients())
}

func TestOrders_IdempotencyKeyReplaysCreate(t *testing.T) {
	env := newTestEnv(t)
	c1 := env.createClient("c1@example.com")
	p1 := env.product("P1", "5.00")
	payload := map[string]any{"client_id": c1.ID, "products": items(p1.ID, 2)}

	first := env.do(http.MethodPost, "/api/orders/create", payload, httpapi.IdempotencyHeader, "order-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := env.do(http.MethodPost, "/api/orders/create", payload, httpapi.IdempotencyHeader, "order-1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	conflict := env.do(http.MethodPost, "/api/orders/create",
		map[string]any{"client_id": c1.ID, "products": items(p1.ID, 3)}, httpapi.IdempotencyHeader, "order-1")
	require.Equal(t, http.StatusConflict, conflict.Code)

	require.Len(t, decode[[]orderBody](t, env.do(http.MethodGet, "/api/orders/list", nil)), 1)
	env.worker.ProcessOnce(context.Background())
	require.Len(t, env.mailer.recipients(), 1)
}

func TestProducts_MultipartCreateAndJSONUpdate(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Croissant"))
	require.NoError(t, form.WriteField("price", "5.5"))
	part, err := form.CreateFormFile("image", "croissant.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/create", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[productBody](t, rec)
	require.Equal(t, "5.50", created.Price)
	require.True(t, strings.HasPrefix(created.Image, "images/"))
	require.Equal(t, "/storage/"+created.Image, created.ImageURL)

	rec = env.do(http.MethodGet, created.ImageURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pngBytes, rec.Body.Bytes())

	rec = env.do(http.MethodPut, "/api/products/detail/"+itoa(created.ID), `{"price": 6.25}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[productBody](t, rec)
	require.Equal(t, "6.25", updated.Price)
	require.Equal(t, "Croissant", updated.Name)
	require.Equal(t, created.Image, updated.Image)

	rec = env.do(http.MethodPost, "/api/products/create", `{"name": "Eclair", "price": "7.50"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "The image field is required.", decode[messageBody](t, rec).Message)
}

func TestServer_RecordsRouteMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/clients/list", nil, httpapi.RequestIDHeader, "req-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get(httpapi.RequestIDHeader))

	count, err := testutil.GatherAndCount(env.registry, "shop_http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
