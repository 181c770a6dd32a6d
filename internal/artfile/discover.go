package artfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches ARTRollout output anywhere below the root.
const DefaultPattern = "**/*ARTRollout*.xls"

// Discover returns the regular files under root matching pattern, sorted by
// path so runs are processed in a stable order.
func Discover(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("batch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch root %s is not a directory", root)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		p := filepath.Join(root, filepath.FromSlash(m))
		st, err := os.Stat(p)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}
