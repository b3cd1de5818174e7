package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnexpectedValues is returned by Flatten when the object holds keys no field declares.
var ErrUnexpectedValues = errors.New("values not declared by any field")

const (
	isoDate     = "2006-01-02"
	isoDateTime = "2006-01-02T15:04:05"
)

// Flatten converts a nested object into form values keyed by dotted field names,
// formatting dates with each field's DateFormat and numbers as decimal strings.
// Keys that no field declares are a hard error.
func (s *Spec) Flatten(obj map[string]any) (map[string]string, error) {
	flat := make(map[string]any)
	flattenAny(flat, "", obj)

	post := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		raw, ok := flat[f.Name]
		delete(flat, f.Name)
		if !ok || raw == nil {
			continue
		}
		v, err := s.format(f, raw)
		if err != nil {
			return nil, err
		}
		post[f.Name] = v
	}

	if len(flat) > 0 {
		extra := make([]string, 0, len(flat))
		for k := range flat {
			extra = append(extra, k)
		}
		sort.Strings(extra)
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedValues, strings.Join(extra, ", "))
	}
	return post, nil
}

func (s *Spec) format(f FieldSpec, raw any) (string, error) {
	if f.isDate() {
		t, err := asTime(raw)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		return t.UTC().Format(s.layouts[f.Name]), nil
	}
	return scalarString(raw), nil
}

// Unflatten re-nests validated form values into an object, parsing numbers,
// converting dates to ISO strings and applying EmptyIsNull.
func (s *Spec) Unflatten(post map[string]string) (map[string]any, error) {
	obj := make(map[string]any)
	for _, f := range s.fields {
		raw, ok := post[f.Name]
		if !ok {
			continue
		}
		var v any = raw
		switch {
		case raw == "" && f.EmptyIsNull:
			v = nil
		case raw == "":
		case f.Type == TypeDate:
			t, err := time.Parse(s.layouts[f.Name], raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			v = t.UTC().Format(isoDate)
		case f.Type == TypeDateTime:
			t, err := time.Parse(s.layouts[f.Name], raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			v = t.UTC().Format(isoDateTime)
		case f.Type == TypeNumber:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			v = n
		}
		if err := setPath(obj, strings.Split(f.Name, "."), v); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return obj, nil
}

func setPath(obj map[string]any, parts []string, v any) error {
	loc := obj
	for _, p := range parts[:len(parts)-1] {
		next, ok := loc[p]
		if !ok {
			m := make(map[string]any)
			loc[p] = m
			loc = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is not an object", p)
		}
		loc = m
	}
	loc[parts[len(parts)-1]] = v
	return nil
}

func flattenAny(dst map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flattenAny(dst, key, m)
			continue
		}
		dst[key] = v
	}
}

// flattenInto is flattenAny with every scalar stringified, for parsing JSON bodies.
func flattenInto(dst map[string]string, prefix string, obj map[string]any) {
	flat := make(map[string]any)
	flattenAny(flat, prefix, obj)
	for k, v := range flat {
		dst[k] = scalarString(v)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, isoDateTime, isoDate} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("not an ISO 8601 date: %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", v)
	}
}
