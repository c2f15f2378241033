// Package roadmap holds the learning-roadmap entity shared by the server and
// the synchronization client, together with the pure normalization rules
// every layer applies to loosely shaped input.
package roadmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultName is used when neither the entity nor its payload carries a name.
const DefaultName = "Untitled roadmap"

// TimestampLayout is the canonical createdAt/updatedAt wire format.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var ErrNotArray = errors.New("roadmap collection is not a JSON array")

// Roadmap is the unit of synchronization.
type Roadmap struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"clientId,omitempty"`
	Name      string         `json:"name"`
	Skills    []string       `json:"skills"`
	Payload   map[string]any `json:"payload"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
	UserEmail string         `json:"userEmail,omitempty"`
}

// DefaultPayload is the payload attached to drafts that arrive without one.
func DefaultPayload() map[string]any {
	return map[string]any{
		"roadmap":   []any{},
		"resources": []any{},
		"progress":  nil,
	}
}

// FormatTimestamp renders t in the canonical UTC millisecond form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the canonical form plus the common ISO variants.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize turns an arbitrary decoded JSON object into a well-formed
// Roadmap. It never fails: missing fields get defaults, and an unparseable
// createdAt is kept verbatim so no information is lost.
func Normalize(raw map[string]any, now time.Time) Roadmap {
	r := Roadmap{
		ID:        firstString(raw["id"], raw["_id"]),
		ClientID:  stringValue(raw["clientId"]),
		UserEmail: stringValue(raw["userEmail"]),
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	payload, ok := raw["payload"].(map[string]any)
	if ok {
		payload = copyMap(payload)
	} else {
		payload = DefaultPayload()
		if phases, found := raw["roadmap"]; found {
			payload["roadmap"] = copyValue(phases)
		}
	}
	r.Payload = payload

	r.Name = strings.TrimSpace(stringValue(raw["name"]))
	if r.Name == "" {
		r.Name = strings.TrimSpace(stringValue(payload["name"]))
	}
	if r.Name == "" {
		r.Name = DefaultName
	}

	if list, isList := raw["skills"].([]any); isList {
		r.Skills = StringSlice(list)
	} else {
		r.Skills = FlattenSkills(payload)
	}

	r.CreatedAt = normalizeTimestamp(raw["createdAt"], now)
	if updated := stringValue(raw["updatedAt"]); updated != "" {
		r.UpdatedAt = normalizeTimestamp(updated, now)
	}
	return r
}

// Normalized re-applies the normalization rules to an already typed value.
func (r Roadmap) Normalized(now time.Time) Roadmap {
	return Normalize(r.toMap(), now)
}

// FromJSON decodes a stored or transmitted collection. Entries that are not
// objects are skipped.
func FromJSON(data []byte, now time.Time) ([]Roadmap, error) {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		var shape any
		if json.Unmarshal(data, &shape) == nil {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("decode roadmaps: %w", err)
	}
	out := make([]Roadmap, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Normalize(obj, now))
	}
	return out, nil
}

// ObjectFromJSON decodes and normalizes a single entity.
func ObjectFromJSON(data []byte, now time.Time) (Roadmap, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return Roadmap{}, fmt.Errorf("decode roadmap: %w", err)
	}
	if obj == nil {
		return Roadmap{}, errors.New("decode roadmap: null object")
	}
	return Normalize(obj, now), nil
}

// Clone returns a deep copy so callers can never alias engine state.
func (r Roadmap) Clone() Roadmap {
	c := r
	if r.Skills != nil {
		c.Skills = append([]string(nil), r.Skills...)
	}
	if r.Payload != nil {
		c.Payload = copyMap(r.Payload)
	}
	return c
}

// CloneAll deep-copies a collection.
func CloneAll(items []Roadmap) []Roadmap {
	out := make([]Roadmap, len(items))
	for i, r := range items {
		out[i] = r.Clone()
	}
	return out
}

// MergeProgress shallow-merges patch into payload.progress and returns the
// updated copy. Keys in patch replace existing keys wholesale.
func MergeProgress(r Roadmap, patch map[string]any) Roadmap {
	out := r.Clone()
	if out.Payload == nil {
		out.Payload = DefaultPayload()
	}
	progress, _ := out.Payload["progress"].(map[string]any)
	merged := make(map[string]any, len(progress)+len(patch))
	for k, v := range progress {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = copyValue(v)
	}
	out.Payload["progress"] = merged
	return out
}

// SortByCreatedAt orders the slice ascending by creation time. Entries whose
// timestamps cannot be parsed keep their relative order after parsed ones.
func SortByCreatedAt(items []Roadmap) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, okI := ParseTimestamp(items[i].CreatedAt)
		tj, okJ := ParseTimestamp(items[j].CreatedAt)
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}

// MergeByID overlays incoming entries onto base: matching ids are replaced,
// new ids are appended. The result is sorted ascending by createdAt.
func MergeByID(base, incoming []Roadmap) []Roadmap {
	index := make(map[string]int, len(base))
	out := CloneAll(base)
	for i, r := range out {
		index[r.ID] = i
	}
	for _, r := range incoming {
		if i, ok := index[r.ID]; ok {
			out[i] = r.Clone()
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r.Clone())
	}
	SortByCreatedAt(out)
	return out
}

// FlattenSkills collects the skill names listed under each phase of
// payload.roadmap. Phases may carry "skills" or, as generated roadmaps do,
// "milestones".
func FlattenSkills(payload map[string]any) []string {
	skills := []string{}
	if payload == nil {
		return skills
	}
	var phases []any
	switch v := payload["roadmap"].(type) {
	case []any:
		phases = v
	case map[string]any:
		phases, _ = v["phases"].([]any)
	}
	for _, p := range phases {
		phase, ok := p.(map[string]any)
		if !ok {
			continue
		}
		list, ok := phase["skills"].([]any)
		if !ok {
			list, _ = phase["milestones"].([]any)
		}
		skills = append(skills, StringSlice(list)...)
	}
	return skills
}

// StringSlice keeps the non-empty string members of a decoded JSON array.
func StringSlice(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r Roadmap) toMap() map[string]any {
	m := map[string]any{
		"id":        r.ID,
		"name":      r.Name,
		"createdAt": r.CreatedAt,
	}
	if r.ClientID != "" {
		m["clientId"] = r.ClientID
	}
	if r.UserEmail != "" {
		m["userEmail"] = r.UserEmail
	}
	if r.UpdatedAt != "" {
		m["updatedAt"] = r.UpdatedAt
	}
	if r.Skills != nil {
		skills := make([]any, len(r.Skills))
		for i, s := range r.Skills {
			skills[i] = s
		}
		m["skills"] = skills
	}
	if r.Payload != nil {
		m["payload"] = r.Payload
	}
	return m
}

func normalizeTimestamp(v any, now time.Time) string {
	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		return FormatTimestamp(now)
	}
	if t, ok := ParseTimestamp(s); ok {
		return FormatTimestamp(t)
	}
	return s
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := stringValue(v); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return t
	}
}
