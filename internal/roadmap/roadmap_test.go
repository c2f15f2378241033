package roadmap

import (
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func TestNormalizeDefaults(t *testing.T) {
	r := Normalize(map[string]any{}, fixedNow)

	if r.ID == "" {
		t.Fatal("expected generated id")
	}
	if r.Name != DefaultName {
		t.Errorf("name = %q, want %q", r.Name, DefaultName)
	}
	if r.Skills == nil || len(r.Skills) != 0 {
		t.Errorf("skills = %#v, want empty slice", r.Skills)
	}
	if r.CreatedAt != "2026-03-04T10:30:00.000Z" {
		t.Errorf("createdAt = %q", r.CreatedAt)
	}
	if _, ok := r.Payload["progress"]; !ok {
		t.Errorf("payload missing progress key: %#v", r.Payload)
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	raw := map[string]any{
		"_id":       "server-1",
		"createdAt": "2025-01-02T03:04:05+02:00",
		"payload": map[string]any{
			"name": "From payload",
			"roadmap": []any{
				map[string]any{"skills": []any{"go", "sql"}},
				map[string]any{"milestones": []any{"docker", 3}},
				"not a phase",
			},
		},
	}
	r := Normalize(raw, fixedNow)

	if r.ID != "server-1" {
		t.Errorf("id = %q", r.ID)
	}
	if r.Name != "From payload" {
		t.Errorf("name = %q", r.Name)
	}
	if want := []string{"go", "sql", "docker"}; !reflect.DeepEqual(r.Skills, want) {
		t.Errorf("skills = %v, want %v", r.Skills, want)
	}
	if r.CreatedAt != "2025-01-02T01:04:05.000Z" {
		t.Errorf("createdAt = %q", r.CreatedAt)
	}
}

func TestNormalizeKeepsUnparseableTimestamp(t *testing.T) {
	r := Normalize(map[string]any{"id": "a", "createdAt": "yesterday-ish"}, fixedNow)
	if r.CreatedAt != "yesterday-ish" {
		t.Errorf("createdAt = %q", r.CreatedAt)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize(map[string]any{
		"id":     "x",
		"name":   "Backend",
		"skills": []any{"go"},
	}, fixedNow)
	second := first.Normalized(fixedNow.Add(time.Hour))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize not idempotent:\n%#v\n%#v", first, second)
	}
}

func TestFromJSON(t *testing.T) {
	items, err := FromJSON([]byte(`[{"id":"a","name":"A"}, 5, {"id":"b"}]`), fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].Name != DefaultName {
		t.Errorf("items = %#v", items)
	}

	if _, err := FromJSON([]byte(`{"id":"a"}`), fixedNow); err != ErrNotArray {
		t.Errorf("object input err = %v, want ErrNotArray", err)
	}
	if _, err := FromJSON([]byte(`{not json`), fixedNow); err == nil {
		t.Error("expected decode error")
	}
}

func TestMergeProgressIsShallow(t *testing.T) {
	r := Normalize(map[string]any{
		"id": "a",
		"payload": map[string]any{
			"progress": map[string]any{
				"n1": map[string]any{"mcq": 10},
				"n2": map[string]any{"mcq": 20},
			},
		},
	}, fixedNow)

	out := MergeProgress(r, map[string]any{"n1": map[string]any{"code": 90}})
	progress := out.Payload["progress"].(map[string]any)

	if !reflect.DeepEqual(progress["n1"], map[string]any{"code": 90}) {
		t.Errorf("n1 = %#v, want replaced wholesale", progress["n1"])
	}
	if progress["n2"] == nil {
		t.Error("n2 lost during merge")
	}
	orig := r.Payload["progress"].(map[string]any)
	if !reflect.DeepEqual(orig["n1"], map[string]any{"mcq": 10}) {
		t.Error("merge mutated the input")
	}
}

func TestMergeByIDSortsAscending(t *testing.T) {
	base := []Roadmap{
		{ID: "b", CreatedAt: "2025-01-02T00:00:00.000Z"},
		{ID: "a", CreatedAt: "2025-01-01T00:00:00.000Z", Name: "old"},
	}
	incoming := []Roadmap{
		{ID: "a", CreatedAt: "2025-01-01T00:00:00.000Z", Name: "new"},
		{ID: "c", CreatedAt: "2024-12-31T00:00:00.000Z"},
	}
	out := MergeByID(base, incoming)

	var ids []string
	for _, r := range out {
		ids = append(ids, r.ID)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
	if out[1].Name != "new" {
		t.Errorf("a not replaced: %q", out[1].Name)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := Normalize(map[string]any{"id": "a", "skills": []any{"go"}}, fixedNow)
	c := r.Clone()
	c.Skills[0] = "rust"
	c.Payload["resources"] = "changed"
	if r.Skills[0] != "go" || r.Payload["resources"] == "changed" {
		t.Error("clone shares memory with original")
	}
}
