package discovery

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsSQLFile reports whether a file name carries the .sql extension
func IsSQLFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".sql")
}

// Resolve turns command line arguments into scripts. Files are taken as
// given, directories are searched recursively for *.sql files, and "-" reads
// standard input. No arguments means standard input.
func Resolve(args []string) ([]Script, error) {
	if len(args) == 0 {
		args = []string{StdinPath}
	}

	var scripts []Script
	seen := make(map[string]bool)
	for _, arg := range args {
		if arg == StdinPath {
			if seen[StdinPath] {
				return nil, fmt.Errorf("standard input named more than once")
			}
			seen[StdinPath] = true
			scripts = append(scripts, Script{Path: StdinPath, RelativePath: StdinPath, Source: SourceStdin})
			continue
		}

		found, err := resolvePath(arg)
		if err != nil {
			return nil, err
		}
		for _, s := range found {
			if !seen[s.Path] {
				seen[s.Path] = true
				scripts = append(scripts, s)
			}
		}
	}
	return scripts, nil
}

func resolvePath(arg string) ([]Script, error) {
	absPath, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return []Script{{
			Path:         absPath,
			RelativePath: arg,
			Source:       SourceFile,
			ModTime:      info.ModTime(),
		}}, nil
	}
	return Discover(absPath)
}

// Discover recursively finds all SQL files in the given directory, sorted by
// relative path
func Discover(rootPath string) ([]Script, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", absRoot)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	var scripts []Script
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip directories we can't access
			if os.IsPermission(err) {
				return nil
			}
			return err
		}

		if info.IsDir() {
			if path != absRoot && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSQLFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		scripts = append(scripts, Script{
			Path:         path,
			RelativePath: relPath,
			Source:       SourceFile,
			ModTime:      info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].RelativePath < scripts[j].RelativePath
	})
	return scripts, nil
}

// Read returns the script text. stdin is used for SourceStdin scripts.
func (s Script) Read(stdin io.Reader) (string, error) {
	if s.Source == SourceStdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.RelativePath, err)
	}
	return string(data), nil
}
