package model

import (
	"os"
	"path/filepath"
	"testing"
)

var fixtureModels = map[string]string{
	"users": `
table: users
primary_keys: [id]
columns: [id, email, first_name, last_name, birth_date, is_active, group_id, created_at]
relations:
  group:
    type: belongs_to
    model: groups
  sessions:
    type: has_many
    model: user_sessions
    where: .revoked_at IS NULL
    order: created_at desc
  roles:
    type: has_many
    model: roles
    through: user_roles
`,
	"groups": `
table: groups
columns: [id, name, created_at]
`,
	"user_sessions": `
table: user_sessions
columns: [id, user_id, device, ip, created_at, revoked_at]
relations:
  user:
    type: belongs_to
    model: users
`,
	"roles": `
table: roles
columns: [id, name]
`,
	"user_roles": `
table: user_roles
primary_keys: [user_id, role_id]
columns: [user_id, role_id, granted_at]
relations:
  user:
    type: belongs_to
    model: users
  role:
    type: belongs_to
    model: roles
`,
}

func writeModels(t *testing.T, models map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range models {
		if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// loadFixture loads the users registry and returns the users model.
func loadFixture(t *testing.T) *Model {
	t.Helper()
	ResetRegistry()
	t.Cleanup(ResetRegistry)
	if err := InitRegistry(writeModels(t, fixtureModels)); err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
	m, err := Get("users")
	if err != nil {
		t.Fatalf("Get(users): %v", err)
	}
	return m
}
