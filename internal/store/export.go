package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteSnapshot writes v to path as indented JSON, creating parent
// directories as needed. HTML escaping is off so accented city names and
// URLs stay readable in the output files.
func WriteSnapshot(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: mkdir %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return eris.Wrapf(err, "export: encode %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
