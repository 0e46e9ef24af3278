package diagfmt

import (
	"os"
	"path/filepath"
)

// formatPath renders a file path according to mode. baseDir is only used
// for PathModeRelative and falls back to the working directory when empty.
func formatPath(path string, mode PathMode, baseDir string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path

	case PathModeRelative:
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := filepath.Rel(baseDir, path); err == nil {
			return filepath.ToSlash(rel)
		}
		return path

	case PathModeBasename:
		return filepath.Base(path)

	case PathModeAuto:
		if len(path) < 40 || !filepath.IsAbs(path) {
			return path
		}
		return filepath.Base(path)

	default:
		return path
	}
}
