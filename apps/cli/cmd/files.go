package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// DefaultPattern is used when run, validate or list get no arguments.
const DefaultPattern = "**/*.http"

// collectFiles expands arguments into a sorted, de-duplicated list of
// .http files. An argument may be a file, a directory (searched
// recursively) or a glob where ** matches any number of directories.
func collectFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{DefaultPattern}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, arg := range args {
		if !hasGlobMeta(arg) {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("cannot access %s: %w", arg, err)
			}
			if !info.IsDir() {
				add(arg)
				continue
			}
			arg = filepath.Join(arg, DefaultPattern)
		}

		matches, err := glob(arg)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isHTTPFile(path string) bool {
	return filepath.Ext(path) == ".http"
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// glob walks the static prefix of pattern and returns the regular files
// whose slash-separated path matches it.
func glob(pattern string) ([]string, error) {
	pattern = filepath.ToSlash(filepath.Clean(pattern))
	root := globRoot(pattern)

	var matches []string
	err := filepath.WalkDir(filepath.FromSlash(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != filepath.FromSlash(root) && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel := filepath.ToSlash(path)
		if root == "." {
			rel = strings.TrimPrefix(rel, "./")
		}
		ok, err := matchGlob(pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", pattern, err)
	}
	return matches, nil
}

// globRoot is the longest leading run of pattern segments without glob
// metacharacters.
func globRoot(pattern string) string {
	segments := strings.Split(pattern, "/")
	var static []string
	for _, s := range segments[:len(segments)-1] {
		if hasGlobMeta(s) {
			break
		}
		static = append(static, s)
	}
	if len(static) == 0 {
		if strings.HasPrefix(pattern, "/") {
			return "/"
		}
		return "."
	}
	root := strings.Join(static, "/")
	if root == "" {
		return "/"
	}
	return root
}

// matchGlob matches slash-separated paths. "**" matches zero or more
// whole segments; other segments follow filepath.Match.
func matchGlob(pattern, path string) (bool, error) {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, path []string) (bool, error) {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for i := 0; i <= len(path); i++ {
				ok, err := matchSegments(pattern[1:], path[i:])
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		}
		if len(path) == 0 {
			return false, nil
		}
		ok, err := filepath.Match(pattern[0], path[0])
		if err != nil || !ok {
			return false, err
		}
		pattern, path = pattern[1:], path[1:]
	}
	return len(path) == 0, nil
}

// completeHTTPFiles offers .http files and directories to shell completion.
func completeHTTPFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"http"}, cobra.ShellCompDirectiveFilterFileExt
}
