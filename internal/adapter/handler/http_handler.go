package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/adapter/auth"
	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/core/service"
	"github.com/rl1809/logitrack/internal/port"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	inventory *service.InventoryService
	orders    *service.OrderService
	auth      port.Authenticator
	cache     *cache.Layer
	log       *zap.Logger
}

// Problem is an RFC 7807 error body.
type Problem struct {
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type HealthResponse struct {
	Status string      `json:"status"`
	Cache  cache.Stats `json:"cache"`
}

func NewHTTPHandler(
	inventory *service.InventoryService,
	orders *service.OrderService,
	authenticator port.Authenticator,
	layer *cache.Layer,
	log *zap.Logger,
) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{
		inventory: inventory,
		orders:    orders,
		auth:      authenticator,
		cache:     layer,
		log:       log.Named("http"),
	}
}

// Routes returns the instrumented router.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /api/inventory", h.authenticated(h.ListInventory))
	mux.HandleFunc("POST /api/inventory", h.authenticated(h.CreateInventoryItem))
	mux.HandleFunc("DELETE /api/inventory/{id}", h.authenticated(h.DeleteInventoryItem))

	mux.HandleFunc("GET /api/order", h.authenticated(h.ListOrders))
	mux.HandleFunc("POST /api/order", h.authenticated(h.CreateOrder, domain.RoleManager))
	mux.HandleFunc("GET /api/order/{id}", h.authenticated(h.GetOrder))
	mux.HandleFunc("DELETE /api/order/{id}", h.authenticated(h.DeleteOrder, domain.RoleManager))

	return otelhttp.NewHandler(mux, "logitrack.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.cache != nil {
		resp.Cache = h.cache.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.GetInventoryList(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req service.InventoryInput
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.inventory.CreateInventoryItem(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/inventory/%d", item.ItemID))
	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) DeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.inventory.DeleteInventoryItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetOrderList(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.OrderInput
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "order.create", order.OrderID)
	w.Header().Set("Location", fmt.Sprintf("/api/order/%d", order.OrderID))
	writeJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "order.delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// authenticated resolves the bearer token and, when roles are given,
// requires the principal to hold at least one of them.
func (h *HTTPHandler) authenticated(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		p, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="logitrack"`)
			writeProblem(w, Problem{
				Title:    "Unauthorized",
				Status:   http.StatusUnauthorized,
				Detail:   err.Error(),
				Instance: r.URL.Path,
			})
			return
		}
		if !authorized(p, roles) {
			writeProblem(w, Problem{
				Title:    "Forbidden",
				Status:   http.StatusForbidden,
				Detail:   "requires role " + roles[0],
				Instance: r.URL.Path,
			})
			return
		}
		next(w, r.WithContext(WithPrincipal(r.Context(), p)))
	}
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeProblem(w, Problem{
			Title:    "Bad Request",
			Status:   http.StatusBadRequest,
			Detail:   "invalid request body",
			Instance: r.URL.Path,
		})
		return false
	}
	return true
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, Problem{
			Title:    "Bad Request",
			Status:   http.StatusBadRequest,
			Detail:   "id must be a positive integer",
			Instance: r.URL.Path,
		})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := Problem{Instance: r.URL.Path}

	switch {
	case errors.Is(err, service.ErrValidation):
		p.Title, p.Status = "Validation failed", http.StatusBadRequest
		p.Errors = fieldErrors(err)
	case errors.Is(err, service.ErrNotFound):
		p.Title, p.Status, p.Detail = "Not Found", http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrTransient):
		p.Title, p.Status = "Service Unavailable", http.StatusServiceUnavailable
		p.Detail = "temporary storage failure, retry the request"
		w.Header().Set("Retry-After", "1")
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	default:
		p.Title, p.Status = "Internal Server Error", http.StatusInternalServerError
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeProblem(w, p)
}

func (h *HTTPHandler) audit(r *http.Request, action string, id int64) {
	p, _ := PrincipalFrom(r.Context())
	h.log.Info(action, zap.String("subject", p.Subject), zap.Int64("id", id))
}

func fieldErrors(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for field, e := range verrs {
		out[field] = e.Error()
	}
	return out
}

func authorized(p domain.Principal, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
