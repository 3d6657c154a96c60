package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateSchema validates a decoded body against a JSON Schema file.
// Relative schema paths resolve against baseDir and may not escape it.
func ValidateSchema(schemaPath, baseDir string, body any) error {
	resolved := schemaPath
	if !filepath.IsAbs(resolved) && baseDir != "" {
		resolved = filepath.Join(baseDir, resolved)
		if err := validatePathWithinBase(resolved, baseDir); err != nil {
			return err
		}
	}

	schemaData, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	document, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body for schema validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &AssertionError{
		Field:    FieldSchema,
		Expected: schemaPath,
		Actual:   strings.Join(violations, "; "),
	}
}

func validatePathWithinBase(path, baseDir string) error {
	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}
