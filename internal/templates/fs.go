// fs.go holds the filesystem helpers behind Engine.  A template set is the
// *.html files sitting next to the requested template plus anything under
// a `partials/` subdirectory, so {{ template "row" . }} works across files.
package templates

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CollectHTML walks rootDir recursively and returns a list of *.html paths.
// A missing rootDir yields an empty list.
func CollectHTML(rootDir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isHTML(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return files, nil
}

// collectSet returns the files parsed together with a template found in
// dir: its sibling pages, then the partials/ of every search path from
// lowest to highest priority so an override partial redefines a default.
func collectSet(dir string, paths []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isHTML(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	for i := len(paths) - 1; i >= 0; i-- {
		partials, err := CollectHTML(filepath.Join(paths[i], "partials"))
		if err != nil {
			return nil, err
		}
		files = append(files, partials...)
	}
	return files, nil
}

// exists reports whether path is a regular file.
func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isHTML(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".html")
}
