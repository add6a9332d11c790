package model

import "github.com/Masterminds/squirrel"

// Relation types.
const (
	BelongsTo = "belongs_to"
	HasOne    = "has_one"
	HasMany   = "has_many"
)

// Model describes one table loaded from db/models/<name>.yml.
type Model struct {
	Name        string                    `yaml:"-"`
	Table       string                    `yaml:"table"`
	PrimaryKeys []string                  `yaml:"primary_keys"` // optional, defaults to ["id"]
	Columns     []string                  `yaml:"columns"`
	Relations   map[string]*ModelRelation `yaml:"relations"`
}

// ModelRelation describes a relation from the owning model to Model.
type ModelRelation struct {
	Type         string `yaml:"type"`          // has_one, has_many, belongs_to
	Model        string `yaml:"model"`         // logical name of the related model
	Table        string `yaml:"table"`         // filled from the related model when empty
	FK           string `yaml:"fk"`            // belongs_to: column of the owner; has_*: column of the related model
	PK           string `yaml:"pk"`            // referenced key, defaults to "id"
	Through      string `yaml:"through"`       // join model for many-to-many
	Where        string `yaml:"where"`         // extra ON condition, columns written as ".col"
	ThroughWhere string `yaml:"through_where"` // same for the join model
	Order        string `yaml:"order"`         // default order of to-many rows, e.g. "created_at desc"

	_ModelRef   *Model `yaml:"-"`
	_ThroughRef *Model `yaml:"-"`
}

// AliasMap maps include paths ("group", "roles.permissions") to SQL aliases
// (t0, t1, ...) and back.
type AliasMap struct {
	PathToAlias map[string]string
	AliasToPath map[string]string
}

// JoinSpec is one JOIN of a generated query.
type JoinSpec struct {
	Path     string
	Table    string
	Alias    string
	On       string
	JoinType string // "LEFT JOIN" or "INNER JOIN"
	Distinct bool   // joined rows may repeat the parent row
	Where    string // relation where from the model file, already aliased
	Cond     squirrel.Sqlizer
}

// GetPrimaryKeys returns the configured primary key, or ["id"].
func (m *Model) GetPrimaryKeys() []string {
	if len(m.PrimaryKeys) > 0 {
		return m.PrimaryKeys
	}
	return []string{"id"}
}

func (m *Model) primaryKey() string {
	return m.GetPrimaryKeys()[0]
}

// HasColumn reports whether col is declared in the model file.
func (m *Model) HasColumn(col string) bool {
	for _, c := range m.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func (m *ModelRelation) GetModelRef() *Model {
	return m._ModelRef
}

func (m *ModelRelation) SetModelRef(model *Model) {
	m._ModelRef = model
}

func (m *ModelRelation) GetThroughRef() *Model {
	return m._ThroughRef
}

func (m *ModelRelation) SetThroughRef(model *Model) {
	m._ThroughRef = model
}

// IsToMany reports whether joining the relation can repeat the owner row.
func (m *ModelRelation) IsToMany() bool {
	return m.Type == HasMany || m.Through != ""
}
