package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"UsersAPI/internal/apperror"
	"UsersAPI/internal/filters"
	"UsersAPI/internal/logger"
	"UsersAPI/internal/metrics"
	"UsersAPI/internal/model"
	"UsersAPI/internal/resolver"
)

// Store runs query options against a model.
type Store interface {
	Find(ctx context.Context, modelName string, opts filters.QueryOptions) ([]map[string]any, error)
	Count(ctx context.Context, modelName string, opts filters.QueryOptions) (int, error)
	Update(ctx context.Context, modelName string, values map[string]any, where filters.Where) (int64, error)
}

// ResolverStore executes queries through the resolver package.
type ResolverStore struct{}

func (ResolverStore) Find(ctx context.Context, modelName string, opts filters.QueryOptions) ([]map[string]any, error) {
	return resolver.Find(ctx, modelName, opts)
}

func (ResolverStore) Count(ctx context.Context, modelName string, opts filters.QueryOptions) (int, error) {
	return resolver.Count(ctx, modelName, opts)
}

func (ResolverStore) Update(ctx context.Context, modelName string, values map[string]any, where filters.Where) (int64, error) {
	return resolver.Update(ctx, modelName, values, where)
}

type UsersConfig struct {
	DefaultLimit int
	LimitMax     int
	AuthEnabled  bool
	RolesClaim   string
	AdminRole    string
}

// Users serves the users resource.
type Users struct {
	cfg   UsersConfig
	store Store
}

func NewUsers(cfg UsersConfig, store Store) *Users {
	if cfg.LimitMax <= 0 {
		cfg.LimitMax = filters.DefaultLimitMax
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.LimitMax {
		cfg.DefaultLimit = cfg.LimitMax
	}
	if cfg.RolesClaim == "" {
		cfg.RolesClaim = "roles"
	}
	if cfg.AdminRole == "" {
		cfg.AdminRole = "admin"
	}
	return &Users{cfg: cfg, store: store}
}

type listResponse struct {
	Items  []map[string]any `json:"items"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

// List handles GET /api/users.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, includes, err := h.prepare(r, listParams)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// paging and sort errors must not cost a count query
	if _, err := h.newFilters(ctx, params, includes, nil).All(); err != nil {
		h.fail(w, r, err)
		return
	}

	total, err := h.store.Count(ctx, usersModel, h.newFilters(ctx, params, includes, nil).Count())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts, err := h.newFilters(ctx, params, includes, &total).All()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.store.Find(ctx, usersModel, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := listResponse{Items: items, Total: total}
	if opts.Offset != nil {
		resp.Offset = *opts.Offset
	}
	if opts.Limit != nil {
		resp.Limit = *opts.Limit
	}

	w.Header().Set("X-Response-Total", strconv.Itoa(total))
	w.Header().Set("X-Response-Pagination", "1")
	w.Header().Set("X-Response-Pagination-Size", strconv.Itoa(len(items)))
	w.Header().Set("X-Response-Pagination-Offset", strconv.Itoa(resp.Offset))
	w.Header().Set("X-Response-Pagination-Limit", strconv.Itoa(resp.Limit))
	writeJSON(w, r, http.StatusOK, resp)
}

// Count handles GET /api/users/count.
func (h *Users) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, includes, err := h.prepare(r, countParams)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.store.Count(ctx, usersModel, h.newFilters(ctx, params, includes, nil).Count())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Response-Total", strconv.Itoa(n))
	writeJSON(w, r, http.StatusOK, map[string]int{"count": n})
}

// Get handles GET /api/users/{id}.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := filters.ParamsFromQuery(r.URL.Query())
	if ok, bad := filters.CheckObjectKeys(itemParams, query.Map(), false); !ok {
		h.fail(w, r, apperror.ValidationFilter(bad))
		return
	}
	query["id"] = r.PathValue("id")

	params, includes, err := h.normalize(ctx, query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	opts, err := h.newFilters(ctx, params, includes, nil).All()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	opts.Offset = nil

	items, err := h.store.Find(ctx, usersModel, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(items) == 0 {
		w.Header().Set("X-Response-Total", "0")
		h.fail(w, r, resolver.ErrNotFound)
		return
	}

	user := items[0]
	w.Header().Set("X-Response-Total", "1")
	w.Header().Set("X-Response-Pagination", "0")
	if updated, ok := user["updated_at"].(time.Time); ok {
		w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *Users) prepare(r *http.Request, allowed []string) (filters.Params, []*filters.Include, error) {
	params := filters.ParamsFromQuery(r.URL.Query())
	if ok, bad := filters.CheckObjectKeys(allowed, params.Map(), false); !ok {
		return nil, nil, apperror.ValidationFilter(bad)
	}
	return h.normalize(r.Context(), params)
}

func (h *Users) normalize(ctx context.Context, params filters.Params) (filters.Params, []*filters.Include, error) {
	if err := h.checkInactiveAccess(ctx, params); err != nil {
		return nil, nil, err
	}
	params, err := normalizeParams(params)
	if err != nil {
		return nil, nil, err
	}
	includes, err := requestedIncludes(params)
	if err != nil {
		return nil, nil, err
	}
	return params, includes, nil
}

// fail maps err to an error response. Client errors are counted by code.
func (h *Users) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		err = apperror.NotFound(CodeUserNotFound, "User not found", err)
	case errors.Is(err, model.ErrInvalidQuery):
		err = apperror.BadRequest(apperror.CodeValidationFilter, "Request filter is invalid", err)
	}

	appErr, ok := apperror.FromError(err)
	if ok && appErr.Status < http.StatusInternalServerError {
		metrics.FilterRejections.WithLabelValues(strconv.Itoa(appErr.Code)).Inc()
		logger.Warn("filters_rejected", map[string]any{
			"request_id": logger.RequestID(r.Context()),
			"path":       r.URL.Path,
			"code":       appErr.Code,
			"error":      err.Error(),
		})
	} else {
		logger.Error("users_request_failed", map[string]any{
			"request_id": logger.RequestID(r.Context()),
			"path":       r.URL.Path,
			"error":      err.Error(),
		})
	}
	apperror.Write(w, err)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
	}
}
