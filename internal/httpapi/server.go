// Package httpapi — JSON HTTP API магазина: клиенты, товары и заказы.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/customers"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
)

// APIPrefix — дополнительный префикс, под которым доступны все маршруты.
const APIPrefix = "/api"

// Options — необязательные зависимости HTTP API.
type Options struct {
	Logger      *log.Entry
	Metrics     *metrics.HTTPMetrics
	Idempotency domain.IdempotencyRepository
	// IdempotencyTTL — срок хранения ответа по Idempotency-Key.
	IdempotencyTTL time.Duration
	// StorageDir — каталог локального хранилища изображений, отдаётся по /storage/.
	StorageDir string
	// ImageURL строит публичный URL изображения по пути из хранилища.
	ImageURL func(path string) string
}

// Server связывает HTTP-маршруты с сервисами.
type Server struct {
	customers *customers.Service
	products  *products.Service
	orders    *orders.Service

	logger         *log.Entry
	metrics        *metrics.HTTPMetrics
	idem           domain.IdempotencyRepository
	idempotencyTTL time.Duration
	storageDir     string
	imageURL       func(string) string

	router *mux.Router
}

// NewServer создаёт Server и регистрирует маршруты.
func NewServer(customerSvc *customers.Service, productSvc *products.Service, orderSvc *orders.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	imageURL := opts.ImageURL
	if imageURL == nil {
		imageURL = func(path string) string {
			if path == "" {
				return ""
			}
			return "/storage/" + strings.TrimPrefix(path, "/")
		}
	}

	s := &Server{
		customers:      customerSvc,
		products:       productSvc,
		orders:         orderSvc,
		logger:         logger,
		metrics:        opts.Metrics,
		idem:           opts.Idempotency,
		idempotencyTTL: ttl,
		storageDir:     opts.StorageDir,
		imageURL:       imageURL,
		router:         mux.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP реализует http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(s.recoverMiddleware, s.requestIDMiddleware, s.loggingMiddleware, s.metricsMiddleware)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found.")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	s.register(s.router)
	s.register(s.router.PathPrefix(APIPrefix).Subrouter())

	if s.storageDir != "" {
		s.router.PathPrefix("/storage/").Handler(
			http.StripPrefix("/storage/", http.FileServer(http.Dir(s.storageDir))),
		).Methods(http.MethodGet, http.MethodHead)
	}
}

func (s *Server) register(r *mux.Router) {
	const id = "/{id:[0-9]+}"

	clients := r.PathPrefix("/clients").Subrouter()
	clients.HandleFunc("/list", s.listClients).Methods(http.MethodGet)
	clients.HandleFunc("/create", s.createClient).Methods(http.MethodPost)
	clients.HandleFunc("/detail"+id, s.showClient).Methods(http.MethodGet)
	clients.HandleFunc("/detail"+id, s.updateClient).Methods(http.MethodPut, http.MethodPatch)
	clients.HandleFunc("/delete"+id, s.deleteClient).Methods(http.MethodDelete)
	clients.HandleFunc("/restore"+id, s.restoreClient).Methods(http.MethodPost)

	productRoutes := r.PathPrefix("/products").Subrouter()
	productRoutes.HandleFunc("/list", s.listProducts).Methods(http.MethodGet)
	productRoutes.HandleFunc("/create", s.createProduct).Methods(http.MethodPost)
	productRoutes.HandleFunc("/detail"+id, s.showProduct).Methods(http.MethodGet)
	productRoutes.HandleFunc("/detail"+id, s.updateProduct).Methods(http.MethodPut, http.MethodPatch, http.MethodPost)
	productRoutes.HandleFunc("/delete"+id, s.deleteProduct).Methods(http.MethodDelete)
	productRoutes.HandleFunc("/restore"+id, s.restoreProduct).Methods(http.MethodPost)

	orderRoutes := r.PathPrefix("/orders").Subrouter()
	orderRoutes.HandleFunc("/list", s.listOrders).Methods(http.MethodGet)
	orderRoutes.HandleFunc("/create", s.idempotent(s.createOrder)).Methods(http.MethodPost)
	orderRoutes.HandleFunc("/detail"+id, s.showOrder).Methods(http.MethodGet)
	orderRoutes.HandleFunc("/detail"+id, s.updateOrder).Methods(http.MethodPut, http.MethodPatch)
	orderRoutes.HandleFunc("/detail"+id+"/timeline", s.orderTimeline).Methods(http.MethodGet)
	orderRoutes.HandleFunc("/delete"+id, s.deleteOrder).Methods(http.MethodDelete)
	orderRoutes.HandleFunc("/restore"+id, s.restoreOrder).Methods(http.MethodPost)
}
