package roadmaps

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrRoadmapNotFound = errors.New("roadmap not found")
	ErrInvalidRoadmap  = errors.New("roadmap must be a JSON object")
)

type RoadmapService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRoadmapService(db *gorm.DB) *RoadmapService {
	return &RoadmapService{db: db, now: time.Now}
}

// draft is what a request body contributes to a row. Nil fields were absent.
type draft struct {
	clientID  string
	name      string
	skills    []string
	payload   map[string]any
	createdAt time.Time
}

func parseDraft(raw map[string]any) draft {
	var d draft
	d.clientID = firstString(raw["clientId"], raw["id"], raw["_id"])
	d.payload, _ = raw["payload"].(map[string]any)

	d.name = strings.TrimSpace(stringOf(raw["name"]))
	if d.name == "" && d.payload != nil {
		if meta, ok := d.payload["metadata"].(map[string]any); ok {
			d.name = strings.TrimSpace(stringOf(meta["name"]))
		}
	}

	switch v := raw["skills"].(type) {
	case []any:
		d.skills = roadmap.StringSlice(v)
	case string:
		if strings.TrimSpace(v) != "" {
			d.skills = []string{v}
		}
	}
	if d.skills == nil && d.payload != nil {
		if list, ok := d.payload["skills"].([]any); ok {
			d.skills = roadmap.StringSlice(list)
		} else if flat := roadmap.FlattenSkills(d.payload); len(flat) > 0 {
			d.skills = flat
		}
	}

	if s := stringOf(raw["createdAt"]); s != "" {
		if t, ok := roadmap.ParseTimestamp(s); ok {
			d.createdAt = t
		}
	}
	return d
}

// List returns the caller's roadmaps, most recent first.
func (s *RoadmapService) List(email string) ([]roadmap.Roadmap, error) {
	var rows []UserRoadmap
	if err := s.db.Scopes(identity.ForUser(email)).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	out := make([]roadmap.Roadmap, len(rows))
	for i := range rows {
		out[i] = toRoadmap(&rows[i])
	}
	return out, nil
}

func (s *RoadmapService) Get(email, key string) (roadmap.Roadmap, error) {
	row, err := s.find(s.db, email, key)
	if err != nil {
		return roadmap.Roadmap{}, err
	}
	return toRoadmap(row), nil
}

// Save stores a roadmap sent by a client. A body whose id (or clientId)
// matches an existing roadmap of the caller updates it; otherwise a new row
// is inserted. created reports which happened.
func (s *RoadmapService) Save(email string, raw map[string]any) (roadmap.Roadmap, bool, error) {
	if raw == nil {
		return roadmap.Roadmap{}, false, ErrInvalidRoadmap
	}
	d := parseDraft(raw)

	if d.clientID != "" {
		if row, err := s.find(s.db, email, d.clientID); err == nil {
			saved, err := s.apply(row, d)
			return saved, false, err
		} else if !errors.Is(err, ErrRoadmapNotFound) {
			return roadmap.Roadmap{}, false, err
		}
	}

	row := UserRoadmap{
		UserEmail: email,
		Name:      orDefault(d.name),
		Skills:    mustJSON(orEmpty(d.skills)),
		Payload:   mustJSON(payloadOrDefault(d.payload)),
		CreatedAt: d.createdAt,
	}
	if d.clientID != "" {
		id := d.clientID
		row.ClientID = &id
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	row.CreatedAt = row.CreatedAt.UTC()

	if err := s.db.Create(&row).Error; err != nil {
		// Lost a race against another upload of the same client id.
		if d.clientID != "" {
			if existing, ferr := s.find(s.db, email, d.clientID); ferr == nil {
				saved, err := s.apply(existing, d)
				return saved, false, err
			}
		}
		return roadmap.Roadmap{}, false, fmt.Errorf("failed to create roadmap: %w", err)
	}
	return toRoadmap(&row), true, nil
}

// Update overwrites the fields present in raw on the roadmap named by key.
func (s *RoadmapService) Update(email, key string, raw map[string]any) (roadmap.Roadmap, error) {
	if raw == nil {
		return roadmap.Roadmap{}, ErrInvalidRoadmap
	}
	row, err := s.find(s.db, email, key)
	if err != nil {
		return roadmap.Roadmap{}, err
	}
	return s.apply(row, parseDraft(raw))
}

func (s *RoadmapService) Delete(email, key string) error {
	row, err := s.find(s.db, email, key)
	if err != nil {
		return err
	}
	if err := s.db.Delete(row).Error; err != nil {
		return fmt.Errorf("failed to delete roadmap: %w", err)
	}
	return nil
}

// PurgeUser deletes every roadmap owned by email.
func (s *RoadmapService) PurgeUser(tx *gorm.DB, email string) error {
	return tx.Scopes(identity.ForUser(email)).Delete(&UserRoadmap{}).Error
}

func (s *RoadmapService) apply(row *UserRoadmap, d draft) (roadmap.Roadmap, error) {
	if d.name != "" {
		row.Name = d.name
	}
	if d.skills != nil {
		row.Skills = mustJSON(d.skills)
	}
	if d.payload != nil {
		row.Payload = mustJSON(d.payload)
	}
	row.UpdatedAt = s.now()
	if err := s.db.Save(row).Error; err != nil {
		return roadmap.Roadmap{}, fmt.Errorf("failed to update roadmap: %w", err)
	}
	return toRoadmap(row), nil
}

// find resolves key as a server id first and then as a client id.
func (s *RoadmapService) find(db *gorm.DB, email, key string) (*UserRoadmap, error) {
	var row UserRoadmap
	q := db.Scopes(identity.ForUser(email))
	var err error
	if id, perr := uuid.Parse(key); perr == nil {
		err = q.Where("id = ? OR client_id = ?", id, key).Order("created_at ASC").First(&row).Error
	} else {
		err = q.Where("client_id = ?", key).First(&row).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoadmapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find roadmap: %w", err)
	}
	return &row, nil
}

func toRoadmap(row *UserRoadmap) roadmap.Roadmap {
	r := roadmap.Roadmap{
		ID:        row.ID.String(),
		Name:      row.Name,
		Skills:    []string{},
		Payload:   roadmap.DefaultPayload(),
		CreatedAt: roadmap.FormatTimestamp(row.CreatedAt),
		UserEmail: row.UserEmail,
	}
	if row.ClientID != nil {
		r.ClientID = *row.ClientID
	}
	if !row.UpdatedAt.IsZero() {
		r.UpdatedAt = roadmap.FormatTimestamp(row.UpdatedAt)
	}
	if len(row.Skills) > 0 {
		var skills []string
		if json.Unmarshal(row.Skills, &skills) == nil && skills != nil {
			r.Skills = skills
		}
	}
	if len(row.Payload) > 0 {
		var payload map[string]any
		if json.Unmarshal(row.Payload, &payload) == nil && payload != nil {
			r.Payload = payload
		}
	}
	return r
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func orDefault(name string) string {
	if name == "" {
		return roadmap.DefaultName
	}
	return name
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func payloadOrDefault(p map[string]any) map[string]any {
	if p == nil {
		return roadmap.DefaultPayload()
	}
	return p
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := strings.TrimSpace(stringOf(v)); s != "" {
			return s
		}
	}
	return ""
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	}
	return ""
}
