package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
)

func TestParseDay(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	// 00:30 at UTC+3 is still the previous day in UTC.
	earlyEast := time.Date(2025, 3, 12, 0, 30, 0, 0, time.FixedZone("+03", 3*3600))
	tests := []struct {
		in      string
		now     time.Time
		want    string
		wantErr bool
	}{
		{"", now, "", false},
		{"  ", now, "", false},
		{"2025-01-31", now, "2025-01-31", false},
		{"today", now, "2025-03-12", false},
		{"yesterday", now, "2025-03-11", false},
		{"tomorrow", now, "2025-03-13", false},
		{"2 days ago", now, "2025-03-10", false},
		{"today", earlyEast, streak.Today(earlyEast), false},
		{"yesterday", earlyEast, "2025-03-10", false},
		{"qwerty zxcv", now, "", true},
	}
	for _, tt := range tests {
		got, err := parseDay(tt.in, tt.now)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseDay(%q, %s) error = %v, wantErr %v", tt.in, tt.now, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseDay(%q, %s) = %q, want %q", tt.in, tt.now, got, tt.want)
		}
	}
}

func TestResolveRoadmapID(t *testing.T) {
	items := roadmapFixtures()

	id, err := resolveRoadmapID(items, "c-1")
	if err != nil || id != "aaaa1111-0000" {
		t.Fatalf("client id lookup = %q, %v", id, err)
	}
	id, err = resolveRoadmapID(items, "bbbb")
	if err != nil || id != "bbbb2222-0000" {
		t.Fatalf("prefix lookup = %q, %v", id, err)
	}
	if _, err := resolveRoadmapID(items, "zzzz"); err == nil {
		t.Fatal("expected unknown id error")
	}
	if _, err := resolveRoadmapID(items, ""); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous prefix error, got %v", err)
	}
}

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", dir, "--notifier", "none", "--server", "http://127.0.0.1:1"}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("careerforge %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestGuestRoadmapsAndStreak(t *testing.T) {
	dir := t.TempDir()

	if out := run(t, dir, "whoami"); !strings.Contains(out, "guest") {
		t.Fatalf("whoami = %q", out)
	}
	if out := run(t, dir, "roadmaps", "list"); !strings.Contains(out, "No roadmaps yet") {
		t.Fatalf("empty list = %q", out)
	}

	run(t, dir, "roadmaps", "add", "--name", "Backend Go", "--skills", "go,sql")
	out := run(t, dir, "roadmaps", "list")
	if !strings.Contains(out, "Backend Go") || !strings.Contains(out, "go, sql") {
		t.Fatalf("list after add = %q", out)
	}

	out = run(t, dir, "streak", "touch", "--date", "2025-03-12")
	if !strings.Contains(out, "2025-03-12") || !strings.Contains(out, "1") {
		t.Fatalf("guest touch = %q", out)
	}
	if out := run(t, dir, "streak", "show"); !strings.Contains(out, "2025-03-12") {
		t.Fatalf("guest show = %q", out)
	}
}

func roadmapFixtures() []roadmap.Roadmap {
	return []roadmap.Roadmap{
		{ID: "aaaa1111-0000", ClientID: "c-1", Name: "A"},
		{ID: "bbbb2222-0000", Name: "B"},
	}
}
