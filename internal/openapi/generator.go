package openapi

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/tsgonest/typeguard/internal/guard"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.1.0"

// Document represents an OpenAPI 3.1 document. typeguard only fills in
// components; paths are left to whoever serves the validated payloads.
type Document struct {
	OpenAPI    string      `json:"openapi"`
	Info       Info        `json:"info"`
	Components *Components `json:"components,omitempty"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Components holds reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// DocumentConfig holds document-level settings.
type DocumentConfig struct {
	Title       string
	Description string
	Version     string
}

// Generate creates a document whose components describe validators, which
// must all come from one pass.
func Generate(validators []*guard.Validator, cfg DocumentConfig) *Document {
	g := NewGenerator()
	g.Add(validators...)
	doc := &Document{
		OpenAPI:    Version,
		Info:       Info{Title: "typeguard", Version: "1.0.0"},
		Components: &Components{Schemas: g.Schemas()},
	}
	doc.ApplyConfig(cfg)
	return doc
}

// ToJSON serializes the document to JSON with indentation and sorted keys.
func (doc *Document) ToJSON() ([]byte, error) {
	return json.Marshal(doc, json.Deterministic(true), jsontext.WithIndent("  "))
}

// ApplyConfig applies document-level configuration overrides.
func (doc *Document) ApplyConfig(cfg DocumentConfig) {
	if cfg.Title != "" {
		doc.Info.Title = cfg.Title
	}
	if cfg.Description != "" {
		doc.Info.Description = cfg.Description
	}
	if cfg.Version != "" {
		doc.Info.Version = cfg.Version
	}
}
