package prizepicks

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

const (
	typeProjection = "projection"
	typePlayer     = "new_player"
	typeLeague     = "league"
	typeGame       = "game"
)

// Document is the upstream relational payload: primary records plus side-loaded includes.
// Records that fail to decode are collected in Malformed instead of failing the whole payload.
type Document struct {
	Data      []Resource          `json:"data"`
	Included  []Resource          `json:"included"`
	Malformed []MalformedResource `json:"-"`
}

// MalformedResource is a record that could not be decoded on its own.
type MalformedResource struct {
	Section string
	ID      string
	Err     error
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data     []json.RawMessage `json:"data"`
		Included []json.RawMessage `json:"included"`
	}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Data, d.Malformed = decodeResources("data", raw.Data, nil)
	d.Included, d.Malformed = decodeResources("included", raw.Included, d.Malformed)
	return nil
}

func decodeResources(section string, items []json.RawMessage, malformed []MalformedResource) ([]Resource, []MalformedResource) {
	out := make([]Resource, 0, len(items))
	for _, item := range items {
		var res Resource
		if err := sonic.Unmarshal(item, &res); err != nil {
			malformed = append(malformed, MalformedResource{Section: section, ID: rawResourceID(item), Err: err})
			continue
		}
		out = append(out, res)
	}
	return out, malformed
}

// rawResourceID pulls the id out of a broken record for logging; empty when it is unreadable too.
func rawResourceID(item json.RawMessage) string {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := sonic.Unmarshal(item, &head); err != nil {
		return ""
	}
	var id resourceID
	if err := id.UnmarshalJSON(head.ID); err != nil {
		return ""
	}
	return string(id)
}

type Resource struct {
	Type          string                  `json:"type"`
	ID            resourceID              `json:"id"`
	Attributes    map[string]any          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships"`
}

type ResourceRef struct {
	Type string     `json:"type"`
	ID   resourceID `json:"id"`
}

// Relationship holds a to-one reference. Null and to-many payloads leave Data nil.
type Relationship struct {
	Data *ResourceRef
}

func (r *Relationship) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(data, &wrapped); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(wrapped.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		r.Data = nil
		return nil
	}

	var ref ResourceRef
	if err := sonic.Unmarshal(trimmed, &ref); err != nil {
		return err
	}
	r.Data = &ref
	return nil
}

// resourceID accepts both string and numeric identifiers.
type resourceID string

func (id *resourceID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := sonic.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*id = resourceID(strings.TrimSpace(value))
		return nil
	}

	var number json.Number
	if err := sonic.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*id = resourceID(number.String())
	return nil
}

func (r Resource) relatedID(name string) (string, bool) {
	rel, ok := r.Relationships[name]
	if !ok || rel.Data == nil || rel.Data.ID == "" {
		return "", false
	}
	return string(rel.Data.ID), true
}

func (r Resource) attrString(key string) (string, bool) {
	raw, ok := r.Attributes[key]
	if !ok || raw == nil {
		return "", false
	}
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case json.Number:
		return typed.String(), true
	default:
		return "", false
	}
}

func (r Resource) attrBool(key string, fallback bool) bool {
	raw, ok := r.Attributes[key]
	if !ok || raw == nil {
		return fallback
	}
	switch typed := raw.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

// attrFloat reports ok=false when the attribute is present but not numeric.
func (r Resource) attrFloat(key string) (float64, bool) {
	raw, present := r.Attributes[key]
	if !present || raw == nil {
		return 0, true
	}
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case json.Number:
		parsed, err := typed.Float64()
		return parsed, err == nil
	case string:
		value := strings.TrimSpace(typed)
		if value == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(value, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
