package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsgonest/typeguard/internal/jsvalue"
)

const userDoc = `
types:
  User:
    object:
      name: string
      age: number
      hobbies?: string[]
      "[Symbol.tag]": string
      "[key: string]": any
  Tree:
    object:
      children: Tree[]
  Status:
    union:
      - literal: active
      - literal: 3
      - false
  Alias: User
classes:
  Base: ~
  Admin: Base
keys:
  Symbol.tag: tag
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(userDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Tree", "Status", "Alias"}, doc.Names())

	user, err := doc.Lookup("User")
	require.NoError(t, err)
	assert.Equal(t, "User", user.String())
	assert.True(t, user.Flags().Has(FlagObject))

	props := user.Properties()
	require.Len(t, props, 4)
	assert.Equal(t, "name", props[0].Name)
	assert.Equal(t, "hobbies", props[2].Name)
	assert.True(t, props[2].Optional)
	assert.Equal(t, "string[]", props[2].Type.String())
	assert.Equal(t, "Symbol.tag", props[3].Computed)
	assert.Empty(t, props[3].Name)
	require.NotNil(t, user.StringIndex())
	assert.True(t, user.StringIndex().Flags().Has(FlagAny))
}

func TestParseDocument_SelfReferenceSharesNode(t *testing.T) {
	doc, err := ParseDocument([]byte(userDoc))
	require.NoError(t, err)

	tree, err := doc.Lookup("Tree")
	require.NoError(t, err)
	children := tree.Properties()[0].Type
	assert.True(t, children.Flags().Has(FlagArray))
	assert.Same(t, tree, children.Element())
}

func TestParseDocument_AliasSharesNode(t *testing.T) {
	doc, err := ParseDocument([]byte(userDoc))
	require.NoError(t, err)

	user, _ := doc.Lookup("User")
	alias, _ := doc.Lookup("Alias")
	assert.Same(t, user, alias)
}

func TestParseDocument_Literals(t *testing.T) {
	doc, err := ParseDocument([]byte(userDoc))
	require.NoError(t, err)

	status, _ := doc.Lookup("Status")
	members := status.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "active", members[0].Literal())
	assert.Equal(t, 3.0, members[1].Literal())
	assert.Equal(t, false, members[2].Literal())
	assert.True(t, members[2].Flags().Has(FlagBooleanLiteral))
}

func TestParseDocument_ForwardReference(t *testing.T) {
	doc, err := ParseDocument([]byte(`
types:
  Order:
    object:
      lines: Line[]
  Line:
    tuple: [string, number]
`))
	require.NoError(t, err)
	order, _ := doc.Lookup("Order")
	line, _ := doc.Lookup("Line")
	assert.Same(t, line, order.Properties()[0].Type.Element())
	assert.Len(t, line.Elements(), 2)
}

func TestParseDocument_RecursionThroughAlias(t *testing.T) {
	for name, source := range map[string]string{
		"alias first":     "types:\n  A: B\n  B:\n    object:\n      a?: A",
		"composite first": "types:\n  B:\n    object:\n      a?: A\n  A: B",
		"alias chain":     "types:\n  A: C\n  C: B\n  B:\n    object:\n      a?: A",
	} {
		t.Run(name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(source))
			require.NoError(t, err)
			a, _ := doc.Lookup("A")
			b, _ := doc.Lookup("B")
			assert.Same(t, b, a)
			assert.Same(t, b, b.Properties()[0].Type)
		})
	}
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"no types", "classes: {}", "no types mapping"},
		{"unknown type", "types:\n  A: Missing", `unknown type "Missing"`},
		{"circular alias", "types:\n  A: B\n  B: A", "circular alias"},
		{"circular alias chain", "types:\n  A: B\n  B: C\n  C: A", "circular alias"},
		{"builtin shadow", "types:\n  string: number", "shadows a builtin"},
		{"two keys", "types:\n  A:\n    array: string\n    union: [string]", "exactly one key"},
		{"bad constructor", "types:\n  A:\n    map: string", `unknown type constructor "map"`},
		{"union not a sequence", "types:\n  A:\n    union: string", "expects a sequence"},
		{"empty computed key", "types:\n  A:\n    object:\n      \"[]\": string", "empty computed property key"},
		{"invalid yaml", "types: [", "invalid YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.source))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDocumentLookupHint(t *testing.T) {
	doc, err := ParseDocument([]byte(userDoc))
	require.NoError(t, err)
	_, err = doc.Lookup("Nope")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "User, Tree, Status, Alias")
}

func TestDocumentRealm(t *testing.T) {
	doc, err := ParseDocument([]byte(userDoc))
	require.NoError(t, err)
	realm := doc.Realm()

	base, admin := realm.Class("Base"), realm.Class("Admin")
	assert.Same(t, base, admin.Parent)
	assert.True(t, jsvalue.InstanceOf(jsvalue.NewInstance(admin, nil), base))

	key, ok := realm.Resolve("Symbol.tag")
	require.True(t, ok)
	assert.Equal(t, "tag", key)
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(userDoc), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Len(t, doc.Names(), 4)

	_, err = LoadDocument(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDocument_JSON(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"types": {"Point": {"tuple": ["number", "number"]}}}`))
	require.NoError(t, err)
	p, err := doc.Lookup("Point")
	require.NoError(t, err)
	assert.Equal(t, "Point", p.String())
	assert.Len(t, p.Elements(), 2)
}
