package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/treevolume/internal/fsutil"
)

// ListFiles returns the sorted paths of regular files directly under dir
// whose names end with suffix.
func ListFiles(fsys fsutil.FileSystem, dir, suffix string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
