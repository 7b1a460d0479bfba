// Package buildcache lets emit skip regeneration when nothing it depends on
// has changed.
//
// The cache is intentionally conservative: if ANY check fails, the checker map
// and manifest are regenerated from scratch. A schema edit can change the
// unit numbering of every validator, so there is no partial invalidation.
package buildcache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeebo/xxh3"
)

// SchemaVersion is bumped when the cache format or the emitted output format
// changes. A mismatch forces a full rebuild, so binary upgrades don't keep
// stale outputs.
const SchemaVersion = 1

// Cache represents the on-disk emit cache.
// It records what was true when emit last ran successfully.
type Cache struct {
	// V is the schema version. Must match SchemaVersion or cache is invalid.
	V int `json:"v"`

	// ConfigHash is the xxh3 hex digest of the config file content.
	// Empty string means no config file was used.
	ConfigHash string `json:"configHash"`

	// InputHash is the combined digest of every schema input file (the
	// schema document, or the Go sources of the loaded packages).
	InputHash string `json:"inputHash"`

	// Outputs lists the paths of output files that must still exist on disk
	// for the cache to be valid: the checker map and the manifest.
	Outputs []string `json:"outputs"`
}

// Load reads and parses a cache file from disk.
// Returns nil if the file doesn't exist, is unreadable, or is invalid JSON.
// Callers should treat nil as "cache miss" and emit from scratch.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}

	return &c
}

// Save writes the cache to disk atomically (write to temp, rename).
// Returns an error if the write fails, but callers may choose to log and continue
// (a failed cache save just means the next emit won't benefit from caching).
func Save(path string, cache *Cache) error {
	data, err := json.Marshal(cache, jsontext.WithIndent("  "))
	if err != nil {
		return errors.Wrap(err, "marshaling cache")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating cache directory %s", dir)
	}

	// Write to temp file first, then rename for atomicity
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "writing cache temp file")
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "renaming cache file")
	}

	return nil
}

// Delete removes the cache file from disk. Errors are ignored (file may not exist).
func Delete(path string) {
	os.Remove(path)
}

// IsValid checks whether the cache can be trusted to skip emit.
// ALL of the following must be true simultaneously:
//
//  1. Schema version matches (catches binary upgrades)
//  2. Config hash matches current config file content
//  3. Input hash matches the current schema inputs
//  4. All output files still exist on disk
func (c *Cache) IsValid(currentConfigHash, currentInputHash string) bool {
	if c == nil {
		return false
	}

	if c.V != SchemaVersion {
		return false
	}

	if c.ConfigHash != currentConfigHash || c.InputHash != currentInputHash {
		return false
	}

	for _, path := range c.Outputs {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}

	return true
}

// HashFile computes the xxh3 hex digest of a file's contents.
// Returns empty string if the file doesn't exist or can't be read.
func HashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(sum[:])
}

// HashValue hashes the Go-syntax rendering of v, e.g. the effective
// configuration after flag overrides. Maps and pointers below the top level
// do not render stably, so v should be a plain struct or a pointer to one.
func HashValue(v any) string {
	sum := xxh3.HashString128(fmt.Sprintf("%#v", v)).Bytes()
	return hex.EncodeToString(sum[:])
}

// HashFiles computes one digest over a set of files, independent of the order
// paths are given in. A missing file hashes differently from an empty one, so
// deleting an input invalidates the cache.
func HashFiles(paths []string) string {
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	h := xxh3.New()
	for _, p := range sorted {
		h.WriteString(p)
		h.Write([]byte{0})
		if data, err := os.ReadFile(p); err == nil {
			h.Write([]byte{1})
			h.Write(data)
		} else {
			h.Write([]byte{2})
		}
		h.Write([]byte{0})
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}

// New creates a new Cache with the current schema version.
func New(configHash, inputHash string, outputs []string) *Cache {
	return &Cache{
		V:          SchemaVersion,
		ConfigHash: configHash,
		InputHash:  inputHash,
		Outputs:    outputs,
	}
}
