package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"UsersAPI/internal/apperror"
	"UsersAPI/internal/auth"
	"UsersAPI/internal/filters"
	"UsersAPI/internal/resolver"

	"github.com/google/uuid"
)

// Codes of the users write operations.
const (
	CodePasswordForbidden = 12013003
	CodeEmailTaken        = 12013007
)

const affectedHeader = "X-Response-Total-Affected"

const maxBodyBytes = 1 << 20

// patchColumns maps the accepted body keys to user columns.
var patchColumns = map[string]string{
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
	"birthDate": "birth_date",
	"isActive":  "is_active",
	"groupId":   "group_id",
}

var patchKeys = []string{"email", "firstName", "lastName", "birthDate", "isActive", "groupId"}

// Patch handles PATCH /api/users/{id}. Inactive users can be patched, which
// is how they are reactivated.
func (h *Users) Patch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set(affectedHeader, "0")

	if err := h.checkWriteAccess(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := pathUserID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, ok := body["password"]; ok {
		h.fail(w, r, apperror.Forbidden(CodePasswordForbidden, "Forbidden to edit password", nil))
		return
	}
	if ok, bad := filters.CheckObjectKeys(patchKeys, body, false); !ok {
		h.fail(w, r, apperror.ValidationFilter(bad))
		return
	}
	values, err := patchValues(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if email, ok := values["email"].(string); ok {
		if err := h.checkEmailFree(ctx, id, email); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	values["updated_at"] = time.Now().UTC()

	n, err := h.store.Update(ctx, usersModel, values, filters.Where{"id": id})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if n == 0 {
		h.fail(w, r, resolver.ErrNotFound)
		return
	}

	user, err := h.findAnyUser(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set(affectedHeader, strconv.FormatInt(n, 10))
	writeJSON(w, r, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}. Users are deactivated, never
// removed; deleting an inactive user is a 404.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set(affectedHeader, "0")

	if err := h.checkWriteAccess(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := pathUserID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	values := map[string]any{"is_active": false, "updated_at": time.Now().UTC()}
	n, err := h.store.Update(ctx, usersModel, values, filters.Where{"id": id, "is_active": true})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if n == 0 {
		h.fail(w, r, resolver.ErrNotFound)
		return
	}
	w.Header().Set(affectedHeader, strconv.FormatInt(n, 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Users) checkWriteAccess(ctx context.Context) error {
	if !h.cfg.AuthEnabled || auth.HasRole(ctx, h.cfg.RolesClaim, h.cfg.AdminRole) {
		return nil
	}
	return apperror.Forbidden(apperror.CodeForbidden, "Forbidden", nil)
}

func (h *Users) checkEmailFree(ctx context.Context, id, email string) error {
	items, err := h.store.Find(ctx, usersModel, filters.QueryOptions{
		Where:      filters.Where{"email": email},
		Attributes: []string{"id"},
		Limit:      filters.Int(2),
	})
	if err != nil {
		return err
	}
	for _, item := range items {
		if other, _ := item["id"].(string); !strings.EqualFold(other, id) {
			return apperror.BadRequest(CodeEmailTaken, "An account with this email already exists", nil)
		}
	}
	return nil
}

// findAnyUser reads a user regardless of is_active.
func (h *Users) findAnyUser(ctx context.Context, id string) (map[string]any, error) {
	params := filters.Params{"id": id, "includeInactive": "true"}
	opts, err := h.newFilters(ctx, params, []*filters.Include{groupInclude()}, nil).All()
	if err != nil {
		return nil, err
	}
	opts.Offset = nil

	items, err := h.store.Find(ctx, usersModel, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, resolver.ErrNotFound
	}
	return items[0], nil
}

func pathUserID(r *http.Request) (string, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return "", apperror.ValidationID("id must be a UUID")
	}
	return id.String(), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return nil, apperror.New(http.StatusBadRequest, apperror.CodeValidation, "Request body must be a JSON object", err)
	}
	if len(body) == 0 {
		return nil, apperror.Validation("Request body is empty", 0)
	}
	return body, nil
}

// patchValues validates the body and returns column values.
func patchValues(body map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(body))
	for _, key := range patchKeys {
		raw, present := body[key]
		if !present {
			continue
		}
		v, ok := patchValue(key, raw)
		if !ok {
			return nil, apperror.Validation(key+" - invalid param", 0)
		}
		values[patchColumns[key]] = v
	}
	return values, nil
}

func patchValue(key string, raw any) (any, bool) {
	switch key {
	case "email":
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		s = strings.ToLower(strings.TrimSpace(s))
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, false
		}
		return s, true
	case "firstName", "lastName":
		if raw == nil {
			return nil, true
		}
		s, ok := raw.(string)
		return strings.TrimSpace(s), ok
	case "birthDate":
		if raw == nil {
			return nil, true
		}
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		t, err := time.Parse("2006-01-02", s)
		return t, err == nil
	case "isActive":
		b, ok := raw.(bool)
		return b, ok
	case "groupId":
		if raw == nil {
			return nil, true
		}
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(s)
		return id.String(), err == nil
	}
	return nil, false
}
