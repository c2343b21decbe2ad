package extract

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/chazu/stepbom/pkg/output"
)

// Save writes a result into the layout: the mesh file first, so its size is
// recorded in the document, then the document, parts, tree and legacy BOM.
func Save(res *Result, l output.Layout) error {
	doc := res.Document
	if res.Scene != nil && doc.WebAssets != nil {
		if err := output.WriteJSON(l.Meshes, res.Scene); err != nil {
			doc.WebAssets = &WebAssets{ConversionError: err.Error()}
		} else if info, err := os.Stat(l.Meshes); err == nil {
			doc.WebAssets.File = filepath.Base(l.Meshes)
			doc.WebAssets.FileSize = info.Size()
		}
	}

	files := []struct {
		path string
		v    any
	}{
		{l.Extraction, doc},
		{l.Parts, doc.PartData},
		{l.Tree, doc.AssemblyStructure},
	}
	if l.Legacy != "" {
		files = append(files, struct {
			path string
			v    any
		}{l.Legacy, doc.PartData})
	}
	for _, f := range files {
		if err := output.WriteJSON(f.path, f.v); err != nil {
			return fmt.Errorf("save %s: %w", res.Source, err)
		}
		log.Printf("extract: wrote %s", f.path)
	}
	return nil
}
