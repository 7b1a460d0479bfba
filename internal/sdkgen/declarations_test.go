package sdkgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsgonest/typeguard/internal/codegen"
	"github.com/tsgonest/typeguard/internal/guard"
	"github.com/tsgonest/typeguard/internal/openapi"
	"github.com/tsgonest/typeguard/internal/schema"
)

const testDoc = `
types:
  Tree:
    object:
      value: number
      label?: string
      children: Tree[]
  Status:
    union:
      - literal: active
      - literal: 2
      - null
  Pair:
    tuple: [string, number]
`

func emit(t *testing.T, names ...string) (*codegen.CheckerMap, *openapi.Generator) {
	t.Helper()
	doc, err := schema.ParseDocument([]byte(testDoc))
	require.NoError(t, err)
	pass := guard.NewPass()
	var validators []*guard.Validator
	for _, name := range names {
		node, err := doc.Lookup(name)
		require.NoError(t, err)
		v, err := pass.Compile(node)
		require.NoError(t, err)
		validators = append(validators, v)
	}
	cm, err := codegen.EmitCheckerMap(pass, validators, codegen.EmitOptions{})
	require.NoError(t, err)
	g := openapi.NewGenerator()
	g.Add(validators...)
	return cm, g
}

func TestDeclarations(t *testing.T) {
	cm, g := emit(t, "Tree", "Status", "Pair")

	expected := `// Code generated by typeguard. DO NOT EDIT.

export interface Tree {
  children: __1;
  label?: string;
  value: number;
}
export type Status = "active" | 2 | null;
export type Pair = [string, number];
type __1 = Tree[];

export declare function isTree(value: unknown): value is Tree;
export declare function isStatus(value: unknown): value is Status;
export declare function isPair(value: unknown): value is Pair;
`
	assert.Equal(t, expected, Declarations(cm.Entries, g))
}

func TestSchemaToTS(t *testing.T) {
	names := map[string]string{"Node": "Node"}
	two := 2
	tests := []struct {
		name   string
		schema *openapi.Schema
		want   string
	}{
		{"nil", nil, "unknown"},
		{"empty", &openapi.Schema{}, "unknown"},
		{"never", &openapi.Schema{Not: &openapi.Schema{}}, "never"},
		{"ref", &openapi.Schema{Ref: "#/components/schemas/Node"}, "Node"},
		{"unknown ref", &openapi.Schema{Ref: "#/components/schemas/Gone"}, "unknown"},
		{"const false", &openapi.Schema{Const: false}, "false"},
		{"nullable", &openapi.Schema{AnyOf: []*openapi.Schema{{Type: "string"}, {Type: "null"}}}, "string | null"},
		{
			"array of union",
			&openapi.Schema{Type: "array", Items: &openapi.Schema{AnyOf: []*openapi.Schema{{Type: "string"}, {Type: "number"}}}},
			"(string | number)[]",
		},
		{"empty tuple", &openapi.Schema{Type: "array", MinItems: new(int), MaxItems: new(int)}, "[]"},
		{"tuple", &openapi.Schema{Type: "array", PrefixItems: []*openapi.Schema{{Type: "boolean"}, {Type: "null"}}, MinItems: &two, MaxItems: &two}, "[boolean, null]"},
		{"class", &openapi.Schema{Type: "object", Class: "Date"}, "object"},
		{
			"record",
			&openapi.Schema{Type: "object", AdditionalProperties: &openapi.SchemaOrBool{Schema: &openapi.Schema{Type: "number"}}},
			"Record<string, number>",
		},
		{
			"object with index",
			&openapi.Schema{
				Type:                 "object",
				Properties:           map[string]*openapi.Schema{"display name": {Type: "string"}},
				AdditionalProperties: &openapi.SchemaOrBool{Schema: &openapi.Schema{}},
			},
			`{ "display name"?: string } & Record<string, unknown>`,
		},
		{
			"intersection",
			&openapi.Schema{AllOf: []*openapi.Schema{{Ref: "#/components/schemas/Node"}, {AnyOf: []*openapi.Schema{{Type: "string"}, {Type: "number"}}}}},
			"Node & (string | number)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemaToTS(tt.schema, names))
		})
	}
}

func TestTSTypeName(t *testing.T) {
	assert.Equal(t, "models_User", tsTypeName("models.User"))
	assert.Equal(t, "__2", tsTypeName("__2"))
	assert.Equal(t, "_1st", tsTypeName("1st"))
	assert.Equal(t, "_", tsTypeName(""))
}

func TestTSPropertyKey(t *testing.T) {
	assert.Equal(t, "name", tsPropertyKey("name"))
	assert.Equal(t, "$ref", tsPropertyKey("$ref"))
	assert.Equal(t, `"display name"`, tsPropertyKey("display name"))
	assert.Equal(t, `"2fa"`, tsPropertyKey("2fa"))
	assert.Equal(t, `""`, tsPropertyKey(""))
}
