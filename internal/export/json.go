// Package export writes audit results as JSON documents and Excel
// workbooks, the two artifacts operators pull out of a run.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// WriteJSON streams the result document to w.
func WriteJSON(w io.Writer, result *model.AuditResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode audit result: %w", err)
	}
	return nil
}

// WriteJSONFile writes the result document to path atomically: the data
// lands in a temp file first so a crash never leaves a half-written
// artifact behind.
func WriteJSONFile(path string, result *model.AuditResult) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := WriteJSON(tmp, result); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}

	return nil
}
