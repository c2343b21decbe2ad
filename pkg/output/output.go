// Package output writes extraction results to disk and queries written
// results with JSONPath.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names inside a per-source output directory.
const (
	ExtractionFile = "extraction_data.json"
	PartsFile      = "parts_data.json"
	TreeFile       = "assembly_tree.json"
	MeshesFile     = "meshes.json"
)

// Layout names every file written for one source.
type Layout struct {
	Dir        string
	Extraction string
	Parts      string
	Tree       string
	Meshes     string
	Legacy     string // empty when the legacy copy is disabled
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewLayout places the results for source under outDir/<stem>. A non-empty
// legacyDir adds legacyDir/<stem>_bom.json.
func NewLayout(outDir, legacyDir, source string) Layout {
	stem := Stem(source)
	dir := filepath.Join(outDir, stem)
	l := Layout{
		Dir:        dir,
		Extraction: filepath.Join(dir, ExtractionFile),
		Parts:      filepath.Join(dir, PartsFile),
		Tree:       filepath.Join(dir, TreeFile),
		Meshes:     filepath.Join(dir, MeshesFile),
	}
	if legacyDir != "" {
		l.Legacy = filepath.Join(legacyDir, stem+"_bom.json")
	}
	return l
}

// WriteJSON writes v as indented JSON, creating parent directories. The
// file is written to a temporary name and renamed into place.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
