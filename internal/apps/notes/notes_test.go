package notes

import (
	"net/http"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/apptest"
)

func TestNotesLifecycle(t *testing.T) {
	db := apptest.DB(t, &Note{})
	app := apptest.App(t, db, New())
	token := apptest.Token(t, "a@b.co")

	if code, _ := apptest.Do(t, app, http.MethodPost, "/api/p/notes", token, CreateNoteRequest{Title: "empty"}); code != http.StatusBadRequest {
		t.Errorf("empty content = %d", code)
	}

	code, body := apptest.Do(t, app, http.MethodPost, "/api/p/notes", token, CreateNoteRequest{Title: "Go", Content: "channels", Milestone: "Concurrency"})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %s", code, body)
	}
	var created NoteResponse
	apptest.Decode(t, body, &created)
	id := created.Note.ID.String()

	content := "channels and select"
	code, body = apptest.Do(t, app, http.MethodPut, "/api/p/notes/"+id, token, map[string]any{"content": content})
	var updated NoteResponse
	apptest.Decode(t, body, &updated)
	if code != http.StatusOK || updated.Note.Content != content || updated.Note.Title != "Go" {
		t.Errorf("update = %d %+v", code, updated.Note)
	}

	other := apptest.Token(t, "c@d.co")
	if code, _ := apptest.Do(t, app, http.MethodGet, "/api/p/notes/"+id, other, nil); code != http.StatusNotFound {
		t.Errorf("foreign get = %d", code)
	}
	if code, _ := apptest.Do(t, app, http.MethodDelete, "/api/p/notes/"+id, other, nil); code != http.StatusNotFound {
		t.Errorf("foreign delete = %d", code)
	}
	if code, _ := apptest.Do(t, app, http.MethodGet, "/api/p/notes/not-a-uuid", token, nil); code != http.StatusNotFound {
		t.Errorf("bad id = %d", code)
	}
	if code, _ := apptest.Do(t, app, http.MethodDelete, "/api/p/notes/"+id, token, nil); code != http.StatusOK {
		t.Errorf("delete = %d", code)
	}
	if code, _ := apptest.Do(t, app, http.MethodGet, "/api/p/notes/"+id, token, nil); code != http.StatusNotFound {
		t.Errorf("get after delete = %d", code)
	}
}

func TestListFiltersByMilestoneNewestFirst(t *testing.T) {
	db := apptest.DB(t, &Note{})
	svc := NewNoteService(db)
	svc.Create("a@b.co", &CreateNoteRequest{Content: "one", Milestone: "HTTP"})
	time.Sleep(5 * time.Millisecond)
	svc.Create("a@b.co", &CreateNoteRequest{Content: "two", Milestone: "HTTP"})
	svc.Create("a@b.co", &CreateNoteRequest{Content: "three", Milestone: "SQL"})
	svc.Create("c@d.co", &CreateNoteRequest{Content: "four", Milestone: "HTTP"})

	app := apptest.App(t, db, New())
	_, body := apptest.Do(t, app, http.MethodGet, "/api/p/notes?milestone=HTTP", apptest.Token(t, "a@b.co"), nil)
	var resp NotesListResponse
	apptest.Decode(t, body, &resp)
	if len(resp.Notes) != 2 || resp.Notes[0].Content != "two" {
		t.Errorf("filtered = %+v", resp.Notes)
	}

	_, body = apptest.Do(t, app, http.MethodGet, "/api/p/notes", apptest.Token(t, "a@b.co"), nil)
	apptest.Decode(t, body, &resp)
	if len(resp.Notes) != 3 {
		t.Errorf("all = %d", len(resp.Notes))
	}
}
