package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rl1809/flavorhutt/internal/core/domain"
	"github.com/rl1809/flavorhutt/internal/core/service"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	purchases *service.PurchaseService
	catalog   *service.CatalogService
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(purchases *service.PurchaseService, catalog *service.CatalogService) *HTTPHandler {
	return &HTTPHandler{purchases: purchases, catalog: catalog}
}

type RouterOptions struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
}

func NewRouter(h *HTTPHandler, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)
	r.Get("/top-selling", h.TopSelling)
	r.Get("/allFoods", h.ListFoods)
	r.Get("/allFoods/{id}", h.GetFood)
	r.Post("/allFoods", h.AddFood)
	r.Post("/purchaseHistory", h.Purchase)
	r.Get("/reviews", h.Reviews)
	r.Get("/feedbacks", h.Feedbacks)

	return r
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}

	result, err := h.purchases.RecordPurchase(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) TopSelling(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.TopSelling(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) ListFoods(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetFood answers 200 with a null body when the id is unknown.
func (h *HTTPHandler) GetFood(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) AddFood(w http.ResponseWriter, r *http.Request) {
	var item domain.MenuItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	result, err := h.catalog.AddItem(r.Context(), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *HTTPHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.catalog.TopRatedReviews(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *HTTPHandler) Feedbacks(w http.ResponseWriter, r *http.Request) {
	feedbacks, err := h.catalog.ListFeedback(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbacks)
}

func (h *HTTPHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("FlavorHutt is running"))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrItemNotFound):
		status = http.StatusNotFound
		message = "Item not found"
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrCounterOverflow):
		status = http.StatusBadRequest
		message = "quantity out of range"
	case errors.Is(err, domain.ErrInvalidID):
		status = http.StatusBadRequest
		message = "invalid item id"
	case errors.Is(err, service.ErrInsufficientStock):
		status = http.StatusConflict
		message = "Insufficient stock"
	case errors.Is(err, service.ErrDuplicateRequest):
		status = http.StatusConflict
		message = "duplicate request"
	case errors.Is(err, domain.ErrDuplicateItem):
		status = http.StatusConflict
		message = "an item with this name already exists"
	default:
		log.Printf("%s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}

	writeJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
