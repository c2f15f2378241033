package streak

import (
	"net/http"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/apptest"
)

func TestGetMissingRowShowsBaseline(t *testing.T) {
	app := apptest.App(t, apptest.DB(t, &UserStats{}), New())
	code, body := apptest.Do(t, app, http.MethodGet, "/api/p/streak", apptest.Token(t, "a@b.co"), nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var resp StreakResponse
	apptest.Decode(t, body, &resp)
	if resp.Streak != 1 || resp.LastActive != nil {
		t.Errorf("missing row = %+v", resp)
	}
}

func TestTouchSequence(t *testing.T) {
	app := apptest.App(t, apptest.DB(t, &UserStats{}), New())
	token := apptest.Token(t, "a@b.co")

	steps := []struct {
		date      string
		want      int
		wantLongs int
	}{
		{"2026-03-01", 1, 1},
		{"2026-03-02", 2, 2},
		{"2026-03-02", 2, 2},
		{"2026-03-03", 3, 3},
		{"2026-03-07", 1, 3},
	}
	for _, s := range steps {
		code, body := apptest.Do(t, app, http.MethodPost, "/api/p/streak", token, ActionRequest{Action: "touch", Date: s.date})
		if code != http.StatusOK {
			t.Fatalf("touch %s status = %d %s", s.date, code, body)
		}
		var resp StreakResponse
		apptest.Decode(t, body, &resp)
		if resp.Streak != s.want || resp.LongestStreak != s.wantLongs || *resp.LastActive != s.date {
			t.Errorf("touch %s = %+v", s.date, resp)
		}
	}
}

func TestResetThenGet(t *testing.T) {
	db := apptest.DB(t, &UserStats{})
	app := apptest.App(t, db, New())
	token := apptest.Token(t, "a@b.co")

	apptest.Do(t, app, http.MethodPost, "/api/p/streak", token, ActionRequest{Action: "touch", Date: "2026-03-01"})
	code, body := apptest.Do(t, app, http.MethodPost, "/api/p/streak", token, ActionRequest{Action: "reset"})
	var resp StreakResponse
	apptest.Decode(t, body, &resp)
	if code != http.StatusOK || resp.Streak != 0 || resp.LastActive != nil {
		t.Fatalf("reset = %d %+v", code, resp)
	}

	// a stored zero reads back as the baseline
	_, body = apptest.Do(t, app, http.MethodGet, "/api/p/streak", token, nil)
	apptest.Decode(t, body, &resp)
	if resp.Streak != 1 || resp.LongestStreak != 1 {
		t.Errorf("after reset = %+v", resp)
	}

	var rows int64
	db.Model(&UserStats{}).Count(&rows)
	if rows != 1 {
		t.Errorf("rows = %d", rows)
	}
}

func TestTouchDefaultsToServerDate(t *testing.T) {
	db := apptest.DB(t, &UserStats{})
	svc := NewStreakService(db)
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC) }

	resp, err := svc.Touch("a@b.co", "04/05/2026")
	if err != nil {
		t.Fatal(err)
	}
	if *resp.LastActive != "2026-05-04" {
		t.Errorf("last active = %s", *resp.LastActive)
	}
}

func TestUnknownActionAndIsolation(t *testing.T) {
	app := apptest.App(t, apptest.DB(t, &UserStats{}), New())
	code, _ := apptest.Do(t, app, http.MethodPost, "/api/p/streak", apptest.Token(t, "a@b.co"), ActionRequest{Action: "freeze"})
	if code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", code)
	}

	apptest.Do(t, app, http.MethodPost, "/api/p/streak", apptest.Token(t, "a@b.co"), ActionRequest{Action: "touch", Date: "2026-03-01"})
	apptest.Do(t, app, http.MethodPost, "/api/p/streak", apptest.Token(t, "a@b.co"), ActionRequest{Action: "touch", Date: "2026-03-02"})
	_, body := apptest.Do(t, app, http.MethodGet, "/api/p/streak", apptest.Token(t, "other@b.co"), nil)
	var resp StreakResponse
	apptest.Decode(t, body, &resp)
	if resp.Streak != 1 || resp.LastActive != nil {
		t.Errorf("other user sees %+v", resp)
	}
}

func TestRequiresToken(t *testing.T) {
	app := apptest.App(t, apptest.DB(t, &UserStats{}), New())
	if code, _ := apptest.Do(t, app, http.MethodGet, "/api/p/streak", "", nil); code != http.StatusUnauthorized {
		t.Errorf("status = %d", code)
	}
}
