// Package entities defines the fixed entity schema extracted from land-rights
// documents and the pure functions that coerce, merge and standardize entity
// values.
package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Entity categories.
const (
	PattaHolderName = "PATTA_HOLDER_NAME"
	PattaNumber     = "PATTA_NUMBER"
	ClaimStatus     = "CLAIM_STATUS"
	Person          = "PERSON"
	PlaceName       = "PLACE_NAME"
	Organization    = "ORGANIZATION"
	Coordinates     = "COORDINATES"
	Date            = "DATE"
	LandArea        = "LAND_AREA"
	SurveyNumber    = "SURVEY_NUMBER"
	Address         = "ADDRESS"
	PhoneNumber     = "PHONE_NUMBER"
	Email           = "EMAIL"
)

// Categories lists every category in canonical order.
var Categories = []string{
	PattaHolderName, PattaNumber, ClaimStatus, Person, PlaceName, Organization,
	Coordinates, Date, LandArea, SurveyNumber, Address, PhoneNumber, Email,
}

// DefaultMandatory are the categories present in every reconciled map.
var DefaultMandatory = []string{ClaimStatus, PattaHolderName, PattaNumber}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsCategory reports whether key is part of the fixed schema.
func IsCategory(key string) bool {
	_, ok := known[key]
	return ok
}

// SplitMandatory separates configured mandatory keys into schema categories
// and unknown keys. Duplicates are removed.
func SplitMandatory(keys []string) (valid, unknown []string) {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if IsCategory(k) {
			valid = append(valid, k)
		} else {
			unknown = append(unknown, k)
		}
	}
	return valid, unknown
}

// EntityMap maps a category to its values.
type EntityMap map[string][]string

// Clone returns a deep copy.
func (m EntityMap) Clone() EntityMap {
	out := make(EntityMap, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// NonEmpty returns the categories that hold at least one value, in canonical
// order. Keys outside the schema are ignored.
func (m EntityMap) NonEmpty() []string {
	var out []string
	for _, c := range Categories {
		if len(m[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Coerce turns a decoded extraction response into an EntityMap. Keys outside
// the schema are dropped. A list keeps its scalar items as strings. A scalar
// becomes a one-element list, or an empty list when it is falsy. Any other
// value, such as a nested object, becomes an empty list.
func Coerce(raw map[string]any) EntityMap {
	out := make(EntityMap)
	for key, value := range raw {
		if !IsCategory(key) {
			continue
		}
		switch v := value.(type) {
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := scalarString(item); ok {
					values = append(values, s)
				}
			}
			out[key] = values
		case []string:
			out[key] = append([]string(nil), v...)
		default:
			if s, ok := scalarString(v); ok && truthy(v) {
				out[key] = []string{s}
			} else {
				out[key] = []string{}
			}
		}
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case string:
		return t != ""
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case bool:
		return t
	case int:
		return t != 0
	default:
		return false
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

// responseSchema only requires an object. Category values are coerced one by
// one, so a single malformed category cannot discard its siblings.
var responseSchema = jsonschema.MustCompileString("entities.json", `{"type": "object"}`)

// StripFences removes a surrounding ``` code fence and an optional json tag.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseResponse decodes an extraction model reply into an EntityMap. The map
// is never nil. A reply that is not a JSON object yields an empty map and a
// non-nil error describing why, for logging.
func ParseResponse(text string) (EntityMap, error) {
	body := StripFences(text)
	if body == "" {
		return EntityMap{}, fmt.Errorf("empty extraction response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return EntityMap{}, fmt.Errorf("invalid JSON in extraction response: %w", err)
	}
	if err := responseSchema.Validate(doc); err != nil {
		return EntityMap{}, fmt.Errorf("extraction response does not match schema: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return EntityMap{}, fmt.Errorf("extraction response is not an object")
	}
	return Coerce(obj), nil
}
