package generation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrModelURLNotFound = errors.New("could not extract 3D model URL from the response")
	ErrImageURLNotFound = errors.New("could not extract image URL from the response")
)

// InvalidURLError carries a candidate that did not parse as an absolute URL.
type InvalidURLError struct {
	Raw string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("Invalid 3D model URL format: %s", e.Raw)
}

// strategy is one way of locating a model URL in a prediction output.
type strategy struct {
	name string
	find func(v *Value) (string, bool)
}

// modelURLStrategies run in order; the first match wins.
var modelURLStrategies = []strategy{
	{name: "recursive", find: findRecursive},
	{name: "well-known-key", find: findWellKnownKey},
	{name: "property-scan", find: findPropertyScan},
	{name: "array-preference", find: findArrayPreference},
	{name: "bare-string", find: findBareString},
}

var wellKnownModelKeys = []string{"glb", "textured_mesh", "mesh"}

// ExtractModelURL locates the 3D asset URL in a prediction output.
func ExtractModelURL(raw []byte) (string, error) {
	v, err := ParseValue(raw)
	if err != nil {
		return "", fmt.Errorf("decode model output: %w (raw %q)", err, truncate(string(raw), 200))
	}
	for _, s := range modelURLStrategies {
		candidate, ok := s.find(v)
		if !ok {
			continue
		}
		if !isAbsoluteURL(candidate) {
			return "", &InvalidURLError{Raw: candidate}
		}
		return candidate, nil
	}
	return "", ErrModelURLNotFound
}

// ExtractImageURL takes the first output of an image prediction.
func ExtractImageURL(raw []byte) (string, error) {
	v, err := ParseValue(raw)
	if err != nil {
		return "", fmt.Errorf("decode image output: %w (raw %q)", err, truncate(string(raw), 200))
	}
	if v.Kind == ArrayValue && len(v.Items) > 0 {
		v = v.Items[0]
	}
	s, ok := v.Str()
	if !ok || s == "" {
		return "", ErrImageURLNotFound
	}
	if !isAbsoluteURL(s) {
		return "", fmt.Errorf("invalid image URL format: %s", s)
	}
	return s, nil
}

func findRecursive(v *Value) (string, bool) {
	switch v.Kind {
	case StringValue:
		if looksLikeModel(v.String) {
			return v.String, true
		}
	case ArrayValue:
		for _, item := range v.Items {
			if s, ok := findRecursive(item); ok {
				return s, true
			}
		}
	case ObjectValue:
		for _, m := range v.Members {
			if s, ok := findRecursive(m.Value); ok {
				return s, true
			}
		}
	}
	return "", false
}

func findWellKnownKey(v *Value) (string, bool) {
	for _, key := range wellKnownModelKeys {
		if s, ok := stringMember(v, key); ok {
			return s, true
		}
	}
	return "", false
}

func findPropertyScan(v *Value) (string, bool) {
	if v.Kind != ObjectValue {
		return "", false
	}
	for _, m := range v.Members {
		s, ok := m.Value.Str()
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		if strings.HasSuffix(lower, ".glb") || strings.HasSuffix(lower, ".obj") ||
			strings.Contains(lower, ".glb?") || strings.Contains(lower, ".obj?") {
			return s, true
		}
	}
	return "", false
}

func findArrayPreference(v *Value) (string, bool) {
	if v.Kind != ArrayValue || len(v.Items) == 0 {
		return "", false
	}
	for _, item := range v.Items {
		if s, ok := item.Str(); ok && (strings.Contains(s, ".glb") || strings.Contains(s, ".obj") || strings.Contains(s, ".mesh")) {
			return s, true
		}
	}
	if s, ok := v.Items[0].Str(); ok && s != "" {
		return s, true
	}
	return "", false
}

func findBareString(v *Value) (string, bool) {
	s, ok := v.Str()
	return s, ok && s != ""
}

func looksLikeModel(s string) bool {
	return strings.Contains(s, ".glb") || strings.Contains(s, ".obj") || strings.Contains(s, "/mesh")
}

func stringMember(v *Value, key string) (string, bool) {
	m, ok := v.Get(key)
	if !ok {
		return "", false
	}
	s, ok := m.Str()
	return s, ok && s != ""
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.Host != ""
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
