package bus

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/systemshift/bus/pkg/diag"
)

// SearchPath is the restricted set of directories module dependencies are
// resolved from: the image's own directory, directories added by earlier
// loads, and the platform's system directories. Environment variables such
// as LD_LIBRARY_PATH are never consulted.
type SearchPath struct {
	dirs   []string
	system []string
}

// NewSearchPath creates a search path holding only the system directories
func NewSearchPath() *SearchPath {
	return &SearchPath{system: systemDirs()}
}

func systemDirs() []string {
	switch runtime.GOOS {
	case "windows":
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return []string{filepath.Join(root, "System32")}
	case "darwin":
		return []string{"/usr/lib", "/usr/local/lib"}
	default:
		return []string{"/lib", "/usr/lib", "/lib64", "/usr/lib64"}
	}
}

// Add appends an existing directory. Adding a directory twice is a no-op.
func (sp *SearchPath) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return diag.Wrap(err, diag.LoadFailure, "bus", "failed to add search path %s", dir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return diag.Wrap(err, diag.LoadFailure, "bus", "failed to add search path %s", abs)
	}
	if !info.IsDir() {
		return diag.Errorf(diag.LoadFailure, "bus", "search path %s is not a directory", abs)
	}
	if slices.Contains(sp.dirs, abs) {
		return nil
	}
	sp.dirs = append(sp.dirs, abs)
	return nil
}

// Dirs returns the added directories in insertion order
func (sp *SearchPath) Dirs() []string {
	return slices.Clone(sp.dirs)
}

// System returns the platform directories searched last
func (sp *SearchPath) System() []string {
	return slices.Clone(sp.system)
}

// Find looks for name in imageDir, then the added directories, then the
// system directories, and returns the first path that exists
func (sp *SearchPath) Find(name, imageDir string) (string, bool) {
	candidates := make([]string, 0, 1+len(sp.dirs)+len(sp.system))
	if imageDir != "" {
		candidates = append(candidates, imageDir)
	}
	candidates = append(candidates, sp.dirs...)
	candidates = append(candidates, sp.system...)

	for _, dir := range candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
