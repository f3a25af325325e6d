package assets

import (
	"encoding/json"
	"fmt"
)

// WriteSourceDirs writes the bundle source directories as a JSON array,
// the `webpack_dirs.json` a front-end build step reads to locate sources.
func (r *Registry) WriteSourceDirs(path string) ([]string, error) {
	dirs, err := r.SourceDirs()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(dirs, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("assets: write %s: %w", path, err)
	}
	return dirs, nil
}
