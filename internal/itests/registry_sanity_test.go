//go:build integration

package itests

import (
	"testing"

	"UsersAPI/internal/model"
)

// Checks the relations the users endpoints depend on.
func TestRegistrySanityOnUserRelations(t *testing.T) {
	users := model.Registry["users"]
	if users == nil {
		t.Fatalf("users model missing in registry")
	}
	if rel := users.Relations["roles"]; rel == nil || rel.Through != "user_roles" || rel.GetThroughRef() == nil {
		t.Fatalf("users.roles must go through user_roles, got: %#v", rel)
	}
	if rel := users.Relations["group"]; rel == nil || rel.FK != "group_id" {
		t.Fatalf("users.group must default fk to group_id, got: %#v", rel)
	}
	if rel := users.Relations["sessions"]; rel == nil || rel.FK != "user_id" || rel.Where == "" {
		t.Fatalf("users.sessions must join on user_id and skip revoked rows, got: %#v", rel)
	}
	if model.Registry["user_roles"].GetPrimaryKeys()[1] != "role_id" {
		t.Fatalf("user_roles must use a composite primary key")
	}
}
