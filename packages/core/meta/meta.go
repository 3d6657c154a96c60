package meta

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Key identifies a reserved meta key.
type Key uint16

const (
	KeyID Key = 1 << iota
	KeyDescription
	KeyNeeds
	KeyIgnore
	KeyOnly
	KeyImport
	KeyHost
	KeyTimeout
	KeyDisplay
	KeyCommand
	KeySchema
	KeyName
)

var reservedNames = map[string]Key{
	"id":          KeyID,
	"name":        KeyName,
	"description": KeyDescription,
	"needs":       KeyNeeds,
	"ignore":      KeyIgnore,
	"only":        KeyOnly,
	"import":      KeyImport,
	"host":        KeyHost,
	"timeout":     KeyTimeout,
	"display":     KeyDisplay,
	"command":     KeyCommand,
	"schema":      KeySchema,
}

// Meta is the configuration of one block.
type Meta struct {
	ID          string
	Name        string
	Description string
	Needs       []string
	Ignore      bool
	Only        bool
	Import      []string
	Host        string
	Timeout     time.Duration
	Display     string
	Command     string
	Schema      string

	// User holds every non-reserved key.
	User map[string]any

	set Key
	raw map[string]any
}

// ValueError reports a reserved key with a value of the wrong type.
type ValueError struct {
	Key   string
	Value any
	Want  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("meta key %q: expected %s, got %T (%v)", e.Key, e.Want, e.Value, e.Value)
}

// FromVars returns a Meta holding every entry of vars as a user key.
// Reserved names are not interpreted.
func FromVars(vars map[string]any) Meta {
	m := Meta{User: make(map[string]any, len(vars)), raw: make(map[string]any, len(vars))}
	for k, v := range vars {
		m.User[k] = v
		m.raw[k] = v
	}
	return m
}

// FromMap decodes a front-matter document.
func FromMap(values map[string]any) (Meta, error) {
	m := Meta{User: make(map[string]any), raw: make(map[string]any, len(values))}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		value := values[name]
		m.raw[name] = value

		key, reserved := reservedNames[name]
		if !reserved {
			m.User[name] = value
			continue
		}
		if err := m.setReserved(name, key, value); err != nil {
			return Meta{}, err
		}
	}

	return m, nil
}

func (m *Meta) setReserved(name string, key Key, value any) error {
	var err error
	switch key {
	case KeyID:
		m.ID, err = toString(name, value)
	case KeyName:
		// name doubles as the id unless id is present
		if m.Name, err = toString(name, value); err == nil && !m.Has(KeyID) {
			m.ID = m.Name
			m.set |= KeyID
		}
	case KeyDescription:
		m.Description, err = toString(name, value)
	case KeyNeeds:
		m.Needs, err = toStrings(name, value)
	case KeyIgnore:
		m.Ignore, err = toBool(name, value)
	case KeyOnly:
		m.Only, err = toBool(name, value)
	case KeyImport:
		m.Import, err = toStrings(name, value)
	case KeyHost:
		m.Host, err = toString(name, value)
	case KeyTimeout:
		m.Timeout, err = toDuration(name, value)
	case KeyDisplay:
		m.Display, err = toString(name, value)
	case KeyCommand:
		m.Command, err = toString(name, value)
	case KeySchema:
		m.Schema, err = toString(name, value)
	}
	if err != nil {
		return err
	}
	m.set |= key
	return nil
}

// Has reports whether a reserved key was set explicitly.
func (m Meta) Has(key Key) bool {
	return m.set&key != 0
}

// Set marks a reserved key as explicitly set; callers assign the field.
func (m *Meta) Set(key Key) {
	m.set |= key
}

// Raw returns every key as written, reserved keys included.
func (m Meta) Raw() map[string]any {
	out := make(map[string]any, len(m.raw))
	for k, v := range m.raw {
		out[k] = v
	}
	return out
}

// Merge returns m overlaid with the keys set in override.
func (m Meta) Merge(override Meta) Meta {
	out := m
	out.User = make(map[string]any, len(m.User)+len(override.User))
	for k, v := range m.User {
		out.User[k] = v
	}
	for k, v := range override.User {
		out.User[k] = v
	}
	out.raw = m.Raw()
	for k, v := range override.raw {
		out.raw[k] = v
	}

	if override.Has(KeyID) {
		out.ID = override.ID
	}
	if override.Has(KeyName) {
		out.Name = override.Name
	}
	if override.Has(KeyDescription) {
		out.Description = override.Description
	}
	if override.Has(KeyNeeds) {
		out.Needs = append([]string(nil), override.Needs...)
	}
	if override.Has(KeyIgnore) {
		out.Ignore = override.Ignore
	}
	if override.Has(KeyOnly) {
		out.Only = override.Only
	}
	if override.Has(KeyImport) {
		out.Import = append([]string(nil), override.Import...)
	}
	if override.Has(KeyHost) {
		out.Host = override.Host
	}
	if override.Has(KeyTimeout) {
		out.Timeout = override.Timeout
	}
	if override.Has(KeyDisplay) {
		out.Display = override.Display
	}
	if override.Has(KeyCommand) {
		out.Command = override.Command
	}
	if override.Has(KeySchema) {
		out.Schema = override.Schema
	}
	out.set = m.set | override.set

	return out
}

// Scalars returns the reserved scalar keys that are set, by their
// front-matter names. The timeout is in milliseconds.
func (m Meta) Scalars() map[string]any {
	out := make(map[string]any)
	for _, s := range []struct {
		name  string
		key   Key
		value any
	}{
		{"id", KeyID, m.ID},
		{"name", KeyName, m.Name},
		{"description", KeyDescription, m.Description},
		{"ignore", KeyIgnore, m.Ignore},
		{"only", KeyOnly, m.Only},
		{"host", KeyHost, m.Host},
		{"timeout", KeyTimeout, m.Timeout.Milliseconds()},
		{"display", KeyDisplay, m.Display},
		{"command", KeyCommand, m.Command},
		{"schema", KeySchema, m.Schema},
	} {
		if m.Has(s.key) {
			out[s.name] = s.value
		}
	}
	return out
}

// Inheritable returns the subset of m that may cascade to other blocks.
// Identity, dependency and gating keys stay with the block that set them.
func (m Meta) Inheritable() Meta {
	out := Meta{
		Host:    m.Host,
		Timeout: m.Timeout,
		Display: m.Display,
		Schema:  m.Schema,
		User:    make(map[string]any, len(m.User)),
		raw:     make(map[string]any),
	}
	for k, v := range m.User {
		out.User[k] = v
		out.raw[k] = v
	}
	for _, key := range []struct {
		name string
		key  Key
	}{{"host", KeyHost}, {"timeout", KeyTimeout}, {"display", KeyDisplay}, {"schema", KeySchema}} {
		if m.Has(key.key) {
			out.set |= key.key
			out.raw[key.name] = m.raw[key.name]
		}
	}
	return out
}

func toString(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int, int64, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", &ValueError{Key: key, Value: value, Want: "a string"}
	}
}

func toStrings(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := toString(key, item)
			if err != nil {
				return nil, err
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		return append([]string(nil), v...), nil
	default:
		s, err := toString(key, value)
		if err != nil {
			return nil, &ValueError{Key: key, Value: value, Want: "a string or a list of strings"}
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
}

func toBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, &ValueError{Key: key, Value: value, Want: "a boolean"}
		}
		return b, nil
	default:
		return false, &ValueError{Key: key, Value: value, Want: "a boolean"}
	}
}

// toDuration accepts integer milliseconds or a Go duration string.
func toDuration(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case string:
		s := strings.TrimSpace(v)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, &ValueError{Key: key, Value: value, Want: "milliseconds or a duration"}
		}
		return d, nil
	default:
		return 0, &ValueError{Key: key, Value: value, Want: "milliseconds or a duration"}
	}
}
