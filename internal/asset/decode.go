package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aliskhannn/catalog-images/internal/model"
)

// ErrInvalidImagesInput is returned when an images field is neither a string nor an array.
var ErrInvalidImagesInput = errors.New("images must be a string or an array")

// urlPattern matches scheme://... up to whitespace, quotes, brackets or a backslash.
var urlPattern = regexp.MustCompile("[A-Za-z][A-Za-z0-9+.\\-]*://[^\\s\"'`\\[\\]{}<>\\\\]+")

// strategy recovers a list of references from a raw string, or reports no match.
type strategy struct {
	name    string
	recover func(raw string) ([]any, bool)
}

// strategies are tried in order; the first match wins.
var strategies = []strategy{
	{name: "strict-json", recover: strictJSON},
	{name: "embedded-urls", recover: embeddedURLs},
	{name: "single-reference", recover: singleReference},
}

// Strategies returns the names of the string recovery strategies in precedence order.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.name)
	}
	return names
}

// Many normalizes a whole images field.
//
// The input may be an array of references, a JSON-encoded array or object, a single URL
// or a corrupted string that still contains URLs. Order is preserved and empty references
// are dropped.
func (n *Normalizer) Many(input any) ([]model.Asset, error) {
	refs, err := references(input)
	if err != nil {
		return nil, err
	}

	refs = expandCollapsed(refs)

	out := make([]model.Asset, 0, len(refs))
	for _, ref := range refs {
		if a, ok := n.One(ref); ok {
			out = append(out, *a)
		}
	}

	return out, nil
}

func references(input any) ([]any, error) {
	switch v := input.(type) {
	case string:
		return recoverString(v), nil
	case []any:
		return v, nil
	case []string:
		refs := make([]any, len(v))
		for i, s := range v {
			refs[i] = s
		}
		return refs, nil
	case []map[string]any:
		refs := make([]any, len(v))
		for i, m := range v {
			refs[i] = m
		}
		return refs, nil
	case []model.Asset:
		refs := make([]any, len(v))
		for i, a := range v {
			refs[i] = a
		}
		return refs, nil
	case json.RawMessage:
		return decodeRaw(v)
	case []byte:
		return decodeRaw(v)
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidImagesInput, input)
	}
}

// decodeRaw handles a field that arrives as raw JSON, e.g. straight from a request body.
func decodeRaw(raw []byte) ([]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImagesInput, err)
	}

	switch v.(type) {
	case string, []any:
		return references(v)
	default:
		return nil, fmt.Errorf("%w: got JSON %T", ErrInvalidImagesInput, v)
	}
}

func recoverString(raw string) []any {
	for _, s := range strategies {
		if refs, ok := s.recover(raw); ok {
			return refs
		}
	}
	return nil
}

func looksStructured(raw string) bool {
	t := strings.TrimSpace(raw)
	return strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{")
}

func strictJSON(raw string) ([]any, bool) {
	if !looksStructured(raw) {
		return nil, false
	}

	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return nil, false
	}

	switch parsed := v.(type) {
	case []any:
		return parsed, true
	case map[string]any:
		return []any{parsed}, true
	default:
		return nil, false
	}
}

// embeddedURLs repairs structured-looking payloads that failed to parse,
// such as arrays that were stringified together with a stack trace.
func embeddedURLs(raw string) ([]any, bool) {
	if !looksStructured(raw) {
		return nil, false
	}

	urls := findURLs(raw)
	if len(urls) == 0 {
		return nil, false
	}

	return urls, true
}

func singleReference(raw string) ([]any, bool) {
	return []any{strings.TrimSpace(raw)}, true
}

func findURLs(raw string) []any {
	matches := urlPattern.FindAllString(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	urls := make([]any, len(matches))
	for i, m := range matches {
		urls[i] = m
	}
	return urls
}

// expandCollapsed recovers arrays that were collapsed into a single corrupted string element.
func expandCollapsed(refs []any) []any {
	if len(refs) != 1 {
		return refs
	}

	s, ok := refs[0].(string)
	if !ok {
		return refs
	}

	if urls := findURLs(s); len(urls) >= 2 {
		return urls
	}

	return refs
}
