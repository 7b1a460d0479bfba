package openapi

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
)

// ValidationError represents an OpenAPI spec compliance error.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateDocument checks an OpenAPI document for spec compliance.
// Returns a list of validation errors, or nil if the document is valid.
func ValidateDocument(doc *Document) []ValidationError {
	var errs []ValidationError

	// Required: openapi version
	if doc.OpenAPI == "" {
		errs = append(errs, ValidationError{Path: "openapi", Message: "required field missing"})
	} else if !strings.HasPrefix(doc.OpenAPI, "3.1") {
		errs = append(errs, ValidationError{Path: "openapi", Message: fmt.Sprintf("expected 3.1.x, got %q", doc.OpenAPI)})
	}

	// Required: info
	if doc.Info.Title == "" {
		errs = append(errs, ValidationError{Path: "info.title", Message: "required field missing"})
	}
	if doc.Info.Version == "" {
		errs = append(errs, ValidationError{Path: "info.version", Message: "required field missing"})
	}

	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		errs = append(errs, ValidationError{Path: "components.schemas", Message: "no schemas"})
		return errs
	}
	for name, schema := range doc.Components.Schemas {
		errs = append(errs, validateSchema("components.schemas."+name, schema, doc.Components.Schemas)...)
	}
	return errs
}

func validateSchema(prefix string, schema *Schema, components map[string]*Schema) []ValidationError {
	if schema == nil {
		return []ValidationError{{Path: prefix, Message: "null schema"}}
	}
	var errs []ValidationError

	if schema.Ref != "" {
		if schema.Type != "" {
			errs = append(errs, ValidationError{Path: prefix, Message: "$ref should not be combined with type"})
		}
		name, ok := strings.CutPrefix(schema.Ref, refPrefix)
		if _, exists := components[name]; !ok || !exists {
			errs = append(errs, ValidationError{Path: prefix + ".$ref", Message: fmt.Sprintf("unresolved reference %q", schema.Ref)})
		}
	}
	if schema.MinItems != nil && schema.MaxItems != nil && *schema.MinItems > *schema.MaxItems {
		errs = append(errs, ValidationError{Path: prefix, Message: "minItems exceeds maxItems"})
	}
	for _, req := range schema.Required {
		if _, ok := schema.Properties[req]; !ok {
			errs = append(errs, ValidationError{Path: prefix + ".required", Message: fmt.Sprintf("%q is not a property", req)})
		}
	}

	for name, p := range schema.Properties {
		errs = append(errs, validateSchema(prefix+".properties."+name, p, components)...)
	}
	children := map[string][]*Schema{
		"prefixItems": schema.PrefixItems,
		"anyOf":       schema.AnyOf,
		"allOf":       schema.AllOf,
	}
	for key, list := range children {
		for i, c := range list {
			errs = append(errs, validateSchema(fmt.Sprintf("%s.%s[%d]", prefix, key, i), c, components)...)
		}
	}
	if schema.Items != nil {
		errs = append(errs, validateSchema(prefix+".items", schema.Items, components)...)
	}
	if ap := schema.AdditionalProperties; ap != nil && ap.Schema != nil {
		errs = append(errs, validateSchema(prefix+".additionalProperties", ap.Schema, components)...)
	}
	return errs
}

// ValidateJSON validates raw JSON against OAS 3.1 structural requirements.
func ValidateJSON(jsonData []byte) ([]ValidationError, error) {
	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing JSON")
	}
	return ValidateDocument(&doc), nil
}
