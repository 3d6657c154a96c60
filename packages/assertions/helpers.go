package assertions

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitrun/packages/template"
)

// Helpers returns template functions for expected response sections, e.g.
//
//	<% if matches "^[0-9]+$" .response.body.id %>...<% end %>
func Helpers() template.FuncMap {
	return template.FuncMap{
		"matches":  matches,
		"contains": contains,
		"oneOf":    oneOf,
		"exists":   exists,
	}
}

func matches(pattern string, value any) (bool, error) {
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return re.MatchString(fmt.Sprintf("%v", value)), nil
}

func contains(haystack, needle any) bool {
	if list, ok := haystack.([]any); ok {
		for _, item := range list {
			if equalValues(item, needle) {
				return true
			}
		}
		return false
	}
	if m, ok := haystack.(map[string]any); ok {
		_, present := m[fmt.Sprintf("%v", needle)]
		return present
	}
	return strings.Contains(fmt.Sprintf("%v", haystack), fmt.Sprintf("%v", needle))
}

func oneOf(value any, options ...any) bool {
	for _, option := range options {
		if equalValues(value, option) {
			return true
		}
	}
	return false
}

func exists(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func equalValues(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}
