package guard

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tsgonest/typeguard/internal/analyzer"
	"github.com/tsgonest/typeguard/internal/jsvalue"
	"github.com/tsgonest/typeguard/internal/schema"
)

const treeDoc = `
types:
  Tree:
    object:
      value: number
      children: Tree[]
  Person:
    object:
      name: string
      pet?: Pet
  Pet:
    object:
      owner: Person
  User:
    object:
      name: string
      age: number
      hobbies?: string[]
  Box:
    param: T
  Tagged:
    object:
      "[Symbol.tag]": string
      next?: Tagged
`

func load(t *testing.T, names ...string) []schema.Type {
	t.Helper()
	doc, err := schema.ParseDocument([]byte(treeDoc))
	require.NoError(t, err)
	out := make([]schema.Type, len(names))
	for i, name := range names {
		n, err := doc.Lookup(name)
		require.NoError(t, err)
		out[i] = n
	}
	return out
}

func TestCompileSelfReference(t *testing.T) {
	pass := NewPass(WithLogger(zaptest.NewLogger(t)))
	v, err := pass.Compile(load(t, "Tree")[0])
	require.NoError(t, err)

	assert.Equal(t, "Tree", v.Root)
	assert.Len(t, v.Units, 2, "Tree and Tree[]")

	leaf := map[string]any{"value": 1, "children": []any{}}
	deep := map[string]any{"value": 1, "children": []any{
		map[string]any{"value": 2, "children": []any{leaf, leaf}},
		map[string]any{"value": 3, "children": []any{}},
	}}
	bad := map[string]any{"value": 1, "children": []any{
		map[string]any{"value": "2", "children": []any{}},
	}}

	assert.True(t, v.Check(leaf))
	assert.True(t, v.Check(deep))
	assert.False(t, v.Check(bad))
	assert.False(t, v.Check(map[string]any{"value": 1}))
}

func TestCompileMutualReference(t *testing.T) {
	pass := NewPass()
	v, err := pass.Compile(load(t, "Person")[0])
	require.NoError(t, err)
	require.Len(t, v.Units, 2)

	ann := map[string]any{"name": "Ann"}
	ann["pet"] = map[string]any{"owner": map[string]any{"name": "Bob"}}
	assert.True(t, v.Check(ann))
	assert.False(t, v.Check(map[string]any{"name": "Ann", "pet": map[string]any{"owner": 1}}))
}

func TestCompileSameRootTwiceSharesUnit(t *testing.T) {
	pass := NewPass()
	roots := load(t, "User")
	a, err := pass.Compile(roots[0])
	require.NoError(t, err)
	b, err := pass.Compile(roots[0])
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, a.Entry, b.Entry)

	defs := map[string]int{}
	for _, u := range pass.Units() {
		defs[u.TypeName]++
	}
	assert.Equal(t, 1, defs["User"], "one definition per originating node")
}

func TestCompileNestedRootReusesUnit(t *testing.T) {
	pass := NewPass()
	roots := load(t, "Person", "Pet")
	person, err := pass.Compile(roots[0])
	require.NoError(t, err)
	pet, err := pass.Compile(roots[1])
	require.NoError(t, err)

	assert.Same(t, person.Units[1], pet.Entry)
	assert.Len(t, pass.Units(), 2)
}

func TestCompileUnsupportedRoot(t *testing.T) {
	pass := NewPass()
	_, err := pass.Compile(load(t, "Box")[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, analyzer.ErrUnsupportedSchemaShape))

	var se *analyzer.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Box", se.Type)
	assert.Empty(t, pass.Units())
}

func TestCompileUnresolvedAccessorRollsBack(t *testing.T) {
	realm := jsvalue.NewRealm()
	pass := NewPass(WithRealm(realm))
	root := load(t, "Tagged")[0]

	_, err := pass.Compile(root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedAccessor))
	assert.Empty(t, pass.Units())

	realm.Bind("Symbol.tag", "tag")
	v, err := pass.Compile(root)
	require.NoError(t, err)
	assert.True(t, v.Check(map[string]any{"tag": "a", "next": map[string]any{"tag": "b"}}))
	assert.False(t, v.Check(map[string]any{"tag": "a", "next": map[string]any{}}))
}

func TestDescribeThenCompile(t *testing.T) {
	pass := NewPass()
	root := load(t, "User")[0]
	d, err := pass.Describe(root)
	require.NoError(t, err)

	v, err := pass.Compile(root)
	require.NoError(t, err)
	assert.Same(t, d, v.Entry.Descriptor())
	assert.True(t, v.Check(map[string]any{"name": "Joe", "age": 8}))
}

func TestCompileAll(t *testing.T) {
	roots := load(t, "Tree", "Person", "User")
	vs, err := CompileAll(context.Background(), roots, WithConcurrency(2))
	require.NoError(t, err)
	require.Len(t, vs, 3)

	for i, v := range vs {
		assert.Equal(t, roots[i].String(), v.Root)
		assert.Equal(t, "__0", v.Entry.Name, "each root gets its own pass")
	}
	assert.True(t, vs[2].Check(map[string]any{"name": "Jan", "age": 30, "hobbies": []any{"x"}}))
}

func TestCompileAllFailure(t *testing.T) {
	roots := load(t, "User", "Box", "Tree")
	_, err := CompileAll(context.Background(), roots, WithConcurrency(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, analyzer.ErrUnsupportedSchemaShape))
}

func TestCompileAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CompileAll(ctx, load(t, "User"))
	require.ErrorIs(t, err, context.Canceled)
}
