package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"UsersAPI/internal/apperror"
	"UsersAPI/internal/auth"
	"UsersAPI/internal/filters"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const writeID = "5a0c3c1e-2b4d-4e6f-8a9b-0c1d2e3f4a5b"

func send(t *testing.T, h *Users, method, target, payload string, ctx context.Context) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	w := httptest.NewRecorder()
	newTestMux(h).ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func TestPatchUser(t *testing.T) {
	store := &fakeStore{affected: 1, items: []map[string]any{{"id": writeID, "email": "ada@example.com"}}}
	payload := `{"email":"  Ada@Example.COM ","firstName":" Ada ","birthDate":"1990-12-10","isActive":true,"groupId":null}`
	w, body := send(t, defaultUsers(store), http.MethodPatch, "/api/users/"+strings.ToUpper(writeID), payload, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%v", w.Code, body)
	}
	if body["email"] != "ada@example.com" {
		t.Fatalf("unexpected body: %v", body)
	}
	if got := w.Header().Get(affectedHeader); got != "1" {
		t.Fatalf("%s = %q", affectedHeader, got)
	}

	if len(store.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(store.updates))
	}
	upd := store.updates[0]
	if diff := cmp.Diff(filters.Where{"id": writeID}, upd.where); diff != "" {
		t.Fatalf("update where mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{
		"email":      "ada@example.com",
		"first_name": "Ada",
		"birth_date": time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		"is_active":  true,
		"group_id":   nil,
	}
	if diff := cmp.Diff(want, upd.values, cmpopts.IgnoreMapEntries(func(k string, _ any) bool { return k == "updated_at" })); diff != "" {
		t.Fatalf("update values mismatch (-want +got):\n%s", diff)
	}
	if _, ok := upd.values["updated_at"].(time.Time); !ok {
		t.Fatalf("updated_at not set: %v", upd.values)
	}

	// the email check runs first, then the re-read sees inactive users too
	if len(store.findOpts) != 2 {
		t.Fatalf("expected email check and re-read, got %d finds", len(store.findOpts))
	}
	if diff := cmp.Diff(filters.Where{"email": "ada@example.com"}, store.findOpts[0].Where); diff != "" {
		t.Fatalf("email check where mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(filters.Where{"id": writeID}, store.findOpts[1].Where); diff != "" {
		t.Fatalf("re-read where mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchUserRejections(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		payload string
		status  int
		code    int
	}{
		{"bad id", "42", `{"firstName":"A"}`, http.StatusBadRequest, apperror.CodeValidationID},
		{"not json", writeID, `nope`, http.StatusBadRequest, apperror.CodeValidation},
		{"array body", writeID, `[1]`, http.StatusBadRequest, apperror.CodeValidation},
		{"empty body", writeID, `{}`, http.StatusBadRequest, apperror.CodeValidation},
		{"password", writeID, `{"password":"secret","firstName":"A"}`, http.StatusForbidden, CodePasswordForbidden},
		{"unknown key", writeID, `{"createdAt":"2024-01-01"}`, http.StatusBadRequest, apperror.CodeValidationFilter},
		{"bad email", writeID, `{"email":"not-an-email"}`, http.StatusBadRequest, apperror.CodeValidation},
		{"bad date", writeID, `{"birthDate":"10.12.1990"}`, http.StatusBadRequest, apperror.CodeValidation},
		{"bad flag", writeID, `{"isActive":"yes"}`, http.StatusBadRequest, apperror.CodeValidation},
		{"bad group", writeID, `{"groupId":"sales"}`, http.StatusBadRequest, apperror.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{affected: 1}
			w, body := send(t, defaultUsers(store), http.MethodPatch, "/api/users/"+tc.id, tc.payload, nil)
			expectError(t, w, body, tc.status, tc.code)
			if len(store.updates) != 0 {
				t.Fatalf("rejected patch must not write")
			}
			if got := w.Header().Get(affectedHeader); got != "0" {
				t.Fatalf("%s = %q", affectedHeader, got)
			}
		})
	}
}

func TestPatchUserEmailTaken(t *testing.T) {
	store := &fakeStore{affected: 1, items: []map[string]any{{"id": "7f1c0c8e-0a4e-4d7a-9b8e-1c2d3e4f5a6b"}}}
	w, body := send(t, defaultUsers(store), http.MethodPatch, "/api/users/"+writeID, `{"email":"grace@example.com"}`, nil)
	expectError(t, w, body, http.StatusBadRequest, CodeEmailTaken)
	if len(store.updates) != 0 {
		t.Fatalf("duplicate email must not be written")
	}
}

func TestPatchUserNotFound(t *testing.T) {
	store := &fakeStore{affected: 0}
	w, body := send(t, defaultUsers(store), http.MethodPatch, "/api/users/"+writeID, `{"lastName":"Lovelace"}`, nil)
	expectError(t, w, body, http.StatusNotFound, CodeUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	store := &fakeStore{affected: 1}
	w, _ := send(t, defaultUsers(store), http.MethodDelete, "/api/users/"+writeID, "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("204 must have no body, got %q", w.Body.String())
	}
	if got := w.Header().Get(affectedHeader); got != "1" {
		t.Fatalf("%s = %q", affectedHeader, got)
	}

	upd := store.updates[0]
	if diff := cmp.Diff(filters.Where{"id": writeID, "is_active": true}, upd.where); diff != "" {
		t.Fatalf("delete where mismatch (-want +got):\n%s", diff)
	}
	if upd.values["is_active"] != false {
		t.Fatalf("delete must deactivate, got %v", upd.values)
	}
	if _, ok := upd.values["updated_at"].(time.Time); !ok {
		t.Fatalf("updated_at not set: %v", upd.values)
	}
}

func TestDeleteUserErrors(t *testing.T) {
	w, body := send(t, defaultUsers(&fakeStore{affected: 0}), http.MethodDelete, "/api/users/"+writeID, "", nil)
	expectError(t, w, body, http.StatusNotFound, CodeUserNotFound)

	w, body = send(t, defaultUsers(&fakeStore{}), http.MethodDelete, "/api/users/nope", "", nil)
	expectError(t, w, body, http.StatusBadRequest, apperror.CodeValidationID)

	store := &fakeStore{updateErr: errors.New("connection refused")}
	w, body = send(t, defaultUsers(store), http.MethodDelete, "/api/users/"+writeID, "", nil)
	expectError(t, w, body, http.StatusInternalServerError, apperror.CodeInternal)
}

func TestWritesRequireAdmin(t *testing.T) {
	cfg := UsersConfig{DefaultLimit: 20, LimitMax: 50, AuthEnabled: true, RolesClaim: "roles"}
	viewer := auth.WithClaims(context.Background(), map[string]any{"roles": []any{"viewer"}})
	admin := auth.WithClaims(context.Background(), map[string]any{"roles": []any{"admin"}})

	store := &fakeStore{affected: 1}
	w, body := send(t, NewUsers(cfg, store), http.MethodDelete, "/api/users/"+writeID, "", viewer)
	expectError(t, w, body, http.StatusForbidden, apperror.CodeForbidden)
	w, body = send(t, NewUsers(cfg, store), http.MethodPatch, "/api/users/"+writeID, `{"lastName":"X"}`, viewer)
	expectError(t, w, body, http.StatusForbidden, apperror.CodeForbidden)
	if len(store.updates) != 0 {
		t.Fatalf("forbidden writes reached the store")
	}

	w, _ = send(t, NewUsers(cfg, store), http.MethodDelete, "/api/users/"+writeID, "", admin)
	if w.Code != http.StatusNoContent {
		t.Fatalf("admin delete: expected 204, got %d", w.Code)
	}
}
