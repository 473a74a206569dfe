package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInputNotFound indicates an explicit input path does not exist.
	ErrInputNotFound = errors.New("input not found")

	// ErrNotPython indicates an explicit input file is not a .py file.
	ErrNotPython = errors.New("input is not a Python file")

	// ErrNoInputs indicates nothing was left to extract after discovery.
	ErrNoInputs = errors.New("no Python files to process")
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery finds Python sources below a directory using include globs and ignore rules.
type Discovery struct {
	rootDir        string
	includes       []compiledPattern
	ignorePatterns []compiledPattern
}

// NewDiscovery compiles the include and ignore patterns.
func NewDiscovery(rootDir string, includes, ignores []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}

	var err error
	if d.includes, err = compilePatterns(includes); err != nil {
		return nil, err
	}
	if d.ignorePatterns, err = compilePatterns(ignores); err != nil {
		return nil, err
	}
	return d, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Discover walks the directory and returns matching files in lexical order.
// Ignored directories are not descended into.
func (d *Discovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(d.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		if d.shouldIgnore(relPath) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		if d.matchesAnyPattern(relPath, d.includes) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// Skip reports whether path, a file or directory below the discovery root, is
// ignored. Paths outside the root are never skipped.
func (d *Discovery) Skip(path string) bool {
	relPath, err := filepath.Rel(d.rootDir, path)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	if relPath == "." || strings.HasPrefix(relPath, "../") {
		return false
	}
	return d.shouldIgnore(relPath)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	// Always ignore our own state directory
	if strings.HasPrefix(relPath, ".mcpforge/") || relPath == ".mcpforge" {
		return true
	}

	if d.matchesAnyPattern(relPath, d.ignorePatterns) {
		return true
	}

	// "venv" should match pattern "venv/**"
	return d.matchesAnyPattern(relPath+"/**", d.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (d *Discovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Files in the root have no slash; let "**/*.py" match "tools.py" too.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			simplified, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/')
			if err == nil && simplified.Match(path) {
				return true
			}
		}
	}

	return false
}

// ResolveInputs expands the given paths into an ordered, duplicate-free file list.
// Directories are discovered with the include and ignore patterns; explicit files
// must exist and end in ".py".
func ResolveInputs(paths, includes, ignores []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
			}
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if !strings.HasSuffix(path, ".py") {
				return nil, fmt.Errorf("%w: %s", ErrNotPython, path)
			}
			add(path)
			continue
		}

		discovery, err := NewDiscovery(path, includes, ignores)
		if err != nil {
			return nil, err
		}
		found, err := discovery.Discover()
		if err != nil {
			return nil, fmt.Errorf("failed to discover files in %s: %w", path, err)
		}
		for _, f := range found {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	return files, nil
}
