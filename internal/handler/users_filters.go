package handler

import (
	"context"
	"strings"
	"time"

	"UsersAPI/internal/apperror"
	"UsersAPI/internal/auth"
	"UsersAPI/internal/filters"
	"UsersAPI/internal/logger"

	"github.com/google/uuid"
)

const usersModel = "users"

// Codes of the users resource.
const (
	CodeUserNotFound     = 12002001
	CodeInvalidDate      = 12010001
	CodeInvalidDateRange = 12010002
	CodeInvalidUUIDList  = 12010003
)

var listParams = []string{
	"id", "userId", "limit", "offset", "sortBy", "sortOrder", "search",
	"email", "isActive", "includeInactive", "createdFrom", "createdTo",
	"bornAfter", "bornBefore", "groupIds", "groupName", "device", "role",
	"include",
}

var itemParams = []string{"include", "includeInactive"}

var countParams = []string{
	"id", "userId", "search", "email", "isActive", "includeInactive",
	"createdFrom", "createdTo", "bornAfter", "bornBefore", "groupIds",
	"groupName", "device", "role",
}

var userAttributes = []string{
	"id", "email", "first_name", "last_name", "birth_date", "is_active",
	"group_id", "created_at", "updated_at",
}

var searchFields = []string{"first_name", "last_name", "email"}

// usersSorts is shared by every request; builders copy it.
var usersSorts = &filters.SortRegistry{
	Allowed: []string{"createdAt", "updatedAt", "firstName", "lastName", "email", "birthDate", "groupName"},
	Models: map[string]filters.SortByModel{
		"groupName": {Model: "group", Fields: []string{"name"}},
	},
	Orders: map[string][]string{
		"createdAt": {"created_at"},
		"updatedAt": {"updated_at"},
		"firstName": {"first_name"},
		"lastName":  {"last_name"},
		"birthDate": {"birth_date"},
	},
}

func groupInclude() *filters.Include {
	return &filters.Include{Model: "groups", As: "group", Attributes: []string{"id", "name"}}
}

func sessionsInclude() *filters.Include {
	return &filters.Include{Model: "user_sessions", As: "sessions", Attributes: []string{"id", "device", "ip", "created_at"}}
}

func rolesInclude() *filters.Include {
	return &filters.Include{
		Model:      "roles",
		As:         "roles",
		Attributes: []string{"id", "name"},
		Through:    &filters.Through{Model: "user_roles", As: "userRoles"},
	}
}

// requestedIncludes parses include=sessions,roles. The group is always
// joined because groupName sorting and filtering depend on it.
func requestedIncludes(params filters.Params) ([]*filters.Include, error) {
	out := []*filters.Include{groupInclude()}
	seen := map[string]bool{}
	add := func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		switch name {
		case "group":
		case "sessions":
			out = append(out, sessionsInclude())
		case "roles":
			out = append(out, rolesInclude())
		default:
			return apperror.ValidationFilter([]string{"include"})
		}
		return nil
	}

	if raw, ok := params["include"]; ok {
		for _, name := range strings.Split(paramString(raw), ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if err := add(name); err != nil {
				return nil, err
			}
		}
	}
	// filtering on a relation needs the relation joined
	if _, ok := params["device"]; ok {
		_ = add("sessions")
	}
	if _, ok := params["role"]; ok {
		_ = add("roles")
	}
	return out, nil
}

// normalizeParams validates the values the builder passes through untouched
// and turns search into a pattern predicate.
func normalizeParams(params filters.Params) (filters.Params, error) {
	// userId is an alias of id; an explicit id wins
	b := filters.New(params, filters.Defaults{})
	if _, dup := params["id"]; !dup {
		b.RenameIndex("userId", "id")
	}
	out := b.Params()
	delete(out, "userId")

	if v, ok := out["id"]; ok {
		if _, err := uuid.Parse(paramString(v)); err != nil {
			return nil, apperror.ValidationID("id must be a UUID")
		}
	}

	if v, ok := out["groupIds"]; ok {
		for _, id := range strings.Split(paramString(v), ",") {
			if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
				return nil, apperror.Validation("groupIds - invalid param", CodeInvalidUUIDList)
			}
		}
	}

	if err := checkDateRange(out, "createdFrom", "createdTo"); err != nil {
		return nil, err
	}
	if err := checkDateRange(out, "bornAfter", "bornBefore"); err != nil {
		return nil, err
	}

	if v, ok := out["search"]; ok {
		term := filters.EscapeString(paramString(v))
		if term == "" {
			delete(out, "search")
		} else {
			out["search"] = filters.Cond{filters.OpILike: "%" + term + "%"}
		}
	}
	return out, nil
}

func checkDateRange(params filters.Params, fromName, toName string) error {
	from, hasFrom, err := paramDate(params, fromName)
	if err != nil {
		return err
	}
	to, hasTo, err := paramDate(params, toName)
	if err != nil {
		return err
	}
	if hasFrom && hasTo && from.After(to) {
		return apperror.Validation(fromName+" must not be after "+toName, CodeInvalidDateRange)
	}
	return nil
}

func paramDate(params filters.Params, name string) (time.Time, bool, error) {
	raw, ok := params[name]
	if !ok {
		return time.Time{}, false, nil
	}
	s := strings.TrimSpace(paramString(raw))
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, apperror.Validation(name+" - invalid date", CodeInvalidDate)
}

// wantsInactive reports whether the request asks for deactivated users.
func wantsInactive(params filters.Params) bool {
	return strings.EqualFold(paramString(params["includeInactive"]), "true") ||
		strings.EqualFold(paramString(params["isActive"]), "false")
}

func (h *Users) checkInactiveAccess(ctx context.Context, params filters.Params) error {
	if !wantsInactive(params) || !h.cfg.AuthEnabled {
		return nil
	}
	if auth.HasRole(ctx, h.cfg.RolesClaim, h.cfg.AdminRole) {
		return nil
	}
	return filters.IncludeInactiveForbidden()
}

// newFilters configures a builder for the users resource. total is the
// result of a previous count, nil when unknown.
func (h *Users) newFilters(ctx context.Context, params filters.Params, includes []*filters.Include, total *int) *filters.Filters {
	f := filters.New(params, filters.Defaults{
		SortBy:    filters.DefaultSortBy,
		SortOrder: filters.DefaultSortOrder,
		Offset:    filters.Int(0),
		Limit:     filters.Int(h.cfg.DefaultLimit),
		Total:     total,
	})
	requestID := logger.RequestID(ctx)

	f.SetLimitMax(h.cfg.LimitMax).
		UseSortRegistry(usersSorts).
		SetInclude(includes).
		SetAttributes(userAttributes).
		OnAliasMiss(func(alias string) {
			logger.Warn("filters_alias_miss", map[string]any{"alias": alias, "request_id": requestID})
		}).
		SetLogging(func(query string, args []any) {
			logger.Debug("users_query", map[string]any{"request_id": requestID, "sql": query, "args": args})
		})

	f.SetWhereFilter("email").
		SetSearchEnumFilter("search", searchFields).
		SetDateFromToFilter("created_at", "createdFrom", "createdTo").
		SetWhereMoreThenFilter("bornAfter", "birth_date").
		SetWhereLessThenFilter("bornBefore", "birth_date").
		SetWhereInFilter("groupIds", "group_id").
		SetWhereFilterInModel("groupName", "group", "name")

	if _, ok := params["device"]; ok {
		f.SetWhereFilterInModel("device", "sessions", "device")
	}
	if _, ok := params["role"]; ok {
		f.SetWhereFilterInModel("role", "roles", "name")
	}

	if strings.EqualFold(paramString(params["includeInactive"]), "true") {
		f.SetIncludeFilter("isActive", "is_active")
	} else {
		f.SetIncludeFilter("isActive", "is_active", true)
	}
	return f
}

func paramString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	}
	return ""
}
