package codegen

import (
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Manifest is the typeguard.manifest.json structure. It maps root type names
// to the generated file and the predicate exported for them.
type Manifest struct {
	Validators map[string]ManifestEntry `json:"validators"`
}

// ManifestEntry points to a generated file and exported function.
type ManifestEntry struct {
	File string `json:"file"`
	Fn   string `json:"fn"`
	Unit string `json:"unit"`
}

// GenerateManifest creates a manifest for a checker map written to
// outputPath. The manifestDir is used to compute relative paths from the
// manifest location.
func GenerateManifest(cm *CheckerMap, outputPath, manifestDir string) *Manifest {
	m := &Manifest{Validators: make(map[string]ManifestEntry, len(cm.Entries))}

	// Compute relative path from manifestDir to the generated file
	relPath, err := filepath.Rel(manifestDir, outputPath)
	if err != nil {
		// Fallback: use the full path
		relPath = outputPath
	}

	// Normalize to forward slashes for JSON/Node.js compatibility
	relPath = filepath.ToSlash(relPath)
	if !strings.HasPrefix(relPath, "./") && !strings.HasPrefix(relPath, "../") && !filepath.IsAbs(relPath) {
		relPath = "./" + relPath
	}

	for _, entry := range cm.Entries {
		m.Validators[entry.Type] = ManifestEntry{File: relPath, Fn: entry.Fn, Unit: entry.Unit}
	}
	return m
}

// ManifestJSON serializes the manifest to pretty-printed JSON with sorted keys.
func ManifestJSON(m *Manifest) ([]byte, error) {
	return json.Marshal(m, json.Deterministic(true), jsontext.WithIndent("  "))
}
