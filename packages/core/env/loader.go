package env

import (
	"os"
	"strings"
)

// Prefix marks process environment variables that become template vars.
const Prefix = "HITRUN_"

// Load merges the given env files in order, then the Prefix-ed process
// environment, into one variable map. Later sources win.
func Load(files []string) (map[string]any, error) {
	vars := make(map[string]any)
	for _, path := range files {
		fileVars, err := LoadDotEnv(path)
		if err != nil {
			return nil, err
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	return MergeVariables(vars, SystemVars(Prefix)), nil
}

// MergeVariables merges maps left to right.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// SystemVars returns process environment variables starting with prefix,
// with the prefix removed.
func SystemVars(prefix string) map[string]any {
	result := make(map[string]any)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if name, found := strings.CutPrefix(key, prefix); found && name != "" {
			result[name] = value
		}
	}
	return result
}
