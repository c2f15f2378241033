package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/llm"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
)

const (
	defaultQuestionCount = 4
	maxQuestionCount     = 20
	defaultDifficulty    = "medium"
	sourceSpanWords      = 12
	maxResources         = 3
)

var (
	ErrRoleRequired   = errors.New("missing_role")
	ErrNodeRequired   = errors.New("nodeId_required")
	ErrQueryRequired  = errors.New("missing_query")
	ErrEmptyOutput    = errors.New("empty_model_output")
	ErrInvalidOutput  = errors.New("invalid_json_from_model")
	ErrNoAIConfigured = llm.ErrNotConfigured

	htmlFragment = regexp.MustCompile(`(?is)(<(?:p|div|strong|ul|ol|li|br|em)[\s\S]*>[\s\S]*</(?:p|div|ul|ol)>)`)
	tagPattern   = regexp.MustCompile(`</?[^>]+(>|$)`)
	spaces       = regexp.MustCompile(`\s+`)
	parenthetic  = regexp.MustCompile(`\(.*?\)`)
	nonAlnum     = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// Completer is the slice of llm.Client the learning APIs need.
type Completer interface {
	Complete(ctx context.Context, p llm.Prompt) (string, error)
}

// VideoSearcher finds tutorial videos for a query.
type VideoSearcher interface {
	Search(ctx context.Context, query string, max int64) ([]Resource, error)
}

type LearningService struct {
	ai     Completer
	videos VideoSearcher
	log    *slog.Logger
	now    func() time.Time
}

func NewLearningService(ai Completer, videos VideoSearcher, log *slog.Logger) *LearningService {
	if log == nil {
		log = slog.Default()
	}
	return &LearningService{
		ai:     ai,
		videos: videos,
		log:    log.With("component", "learning"),
		now:    time.Now,
	}
}

// GenerateRoadmap asks the model for a phased plan for role.
func (s *LearningService) GenerateRoadmap(ctx context.Context, role string) (GenerateRoadmapResponse, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return GenerateRoadmapResponse{}, ErrRoleRequired
	}

	text, err := s.ai.Complete(ctx, llm.Prompt{
		System: "You are a roadmap generator. Produce plain text only. Use phases like 'Phase 1', 'Phase 2', followed by simple bullet lines for milestones. No code fences or markdown.",
		User: []string{
			fmt.Sprintf(`Create a concise learning roadmap for the role: %q.
Output should contain clearly labeled phases such as "Phase 1", "Phase 2", etc., each followed by 3-6 short milestone lines (one per line). Avoid markdown fences. Example:

Phase 1: <title>
- milestone A
- milestone B

Phase 2: <title>
- milestone C
...`, role),
			"Create a roadmap for: " + role,
		},
		MaxTokens:   900,
		Temperature: 0,
	})
	if err != nil {
		return GenerateRoadmapResponse{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return GenerateRoadmapResponse{}, ErrEmptyOutput
	}
	return GenerateRoadmapResponse{Roadmap: GeneratedRoadmap{Phases: roadmap.ParsePhases(text)}}, nil
}

// Questions generates practice questions for a roadmap node.
func (s *LearningService) Questions(ctx context.Context, req QuestionsRequest) (QuestionsResponse, error) {
	if strings.TrimSpace(req.NodeID) == "" {
		return QuestionsResponse{}, ErrNodeRequired
	}
	if len(req.Types) == 0 {
		req.Types = []string{"mcq"}
	}
	if req.Count <= 0 {
		req.Count = defaultQuestionCount
	}
	if req.Count > maxQuestionCount {
		req.Count = maxQuestionCount
	}
	if req.Difficulty == "" {
		req.Difficulty = defaultDifficulty
	}
	if strings.TrimSpace(req.Text) == "" {
		req.Text = fmt.Sprintf("Generate questions for the learning topic: %q. Provide accurate questions relevant to this topic.", req.NodeID)
	}

	text, err := s.ai.Complete(ctx, llm.Prompt{
		System:      "You are an expert question generator for technical learning platforms. Respond with JSON only. Do NOT include markdown, code fences, or any commentary. Output must be raw JSON that exactly matches the requested shape.",
		User:        []string{questionPrompt(req)},
		MaxTokens:   1800,
		Temperature: 0,
	})
	if err != nil {
		return QuestionsResponse{}, err
	}

	var parsed any
	if err := llm.ExtractJSON(text, &parsed); err != nil {
		s.log.Warn("question output unparseable", "node_id", req.NodeID, "error", err)
		return QuestionsResponse{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	items := questionItems(parsed)
	stamp := s.now().UnixMilli()
	out := make([]Question, 0, len(items))
	for i, item := range items {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, buildQuestion(q, req, stamp, i))
	}
	return QuestionsResponse{Questions: out}, nil
}

func questionItems(parsed any) []any {
	switch v := parsed.(type) {
	case []any:
		return v
	case map[string]any:
		if list, ok := v["questions"].([]any); ok {
			return list
		}
	}
	return nil
}

func buildQuestion(q map[string]any, req QuestionsRequest, stamp int64, i int) Question {
	out := Question{
		ID:          stringField(q, "id"),
		NodeID:      req.NodeID,
		Type:        stringField(q, "type"),
		Stem:        firstField(q, "stem", "question", "title"),
		Options:     q["options"],
		Answer:      q["answer"],
		Explanation: stringField(q, "explanation"),
		Difficulty:  stringField(q, "difficulty"),
		Metadata:    q["metadata"],
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("%s_%d_%d", req.NodeID, stamp, i)
	}
	if out.Type == "" {
		out.Type = "short"
		if out.Options != nil {
			out.Type = "mcq"
		}
	}
	if out.Difficulty == "" {
		out.Difficulty = req.Difficulty
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return out
}

func questionPrompt(req QuestionsRequest) string {
	return fmt.Sprintf(`Generate exactly %d %s questions for the learning topic %q. The source material is below (<<TEXT>>). Use the material to craft accurate questions. The allowed question types are: %s. Output must be valid JSON only with this exact shape:

{
  "questions": [
    {
      "id": "<unique-id>",
      "type": "mcq" | "multiselect" | "short" | "long" | "coding",
      "stem": "<question text>",
      "options": ["optA","optB","optC","optD"],
      "answer": "<correct answer or array for multiselect>",
      "explanation": "<short 1-3 sentence explanation>",
      "difficulty": "easy|medium|hard",
      "metadata": { "source_span": "<short excerpt from the input text>" }
    }
  ]
}

<<TEXT>>
%s

Important constraints:
- Output only valid JSON and nothing else (no markdown, no code fences).
- For MCQs provide 3-4 plausible options.
- For multiselect answer return an array of indices or option texts.
- For coding questions include metadata.tests array with { "stdin": "...", "expected": "..." } objects.
- Keep explanations short (1-3 sentences).
- Where possible include a small metadata.source_span with the excerpt used as a hint.`,
		req.Count, req.Difficulty, req.NodeID, strings.Join(req.Types, ", "), req.Text)
}

// Theory returns a short HTML overview of query. When the model is not
// reachable a fixed template overview is returned instead.
func (s *LearningService) Theory(ctx context.Context, query string) (TheoryResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return TheoryResponse{}, ErrQueryRequired
	}

	text, err := s.ai.Complete(ctx, llm.Prompt{
		System: "You are an expert technical educator writing short study overviews. Output must be valid HTML only. No markdown or code fences.",
		User: []string{fmt.Sprintf(`Write a concise 7-8 line learning overview for the technical topic %q.
Provide:
1) A short paragraph (approx 3-4 sentences) summarizing the topic and core idea.
2) A short "How to approach learning" (2 sentences).
3) A "Key prerequisites" line listing 2-3 items.
4) Output as plain HTML (use <p>, <strong>, <ul>, <li> where helpful) and keep it short.
Do NOT include code fences, lists outside HTML, or extra commentary. Return only the HTML (no markdown).`, query)},
		MaxTokens:   450,
		Temperature: 0.2,
	})

	var theory string
	if err == nil {
		cleaned := llm.CleanModelOutput(text)
		theory = cleaned
		if m := htmlFragment.FindString(cleaned); m != "" {
			theory = m
		}
		theory = strings.TrimSpace(theory)
	} else {
		s.log.Warn("theory generation failed, using template", "query", query, "error", err)
	}
	if theory == "" {
		theory = TemplateOverview(query)
	}
	return TheoryResponse{Theory: theory, SourceSpan: SourceSpan(theory)}, nil
}

// SourceSpan is the first twelve words of the plain text inside html.
func SourceSpan(html string) string {
	text := strings.TrimSpace(spaces.ReplaceAllString(tagPattern.ReplaceAllString(html, " "), " "))
	words := strings.Fields(text)
	if len(words) > sourceSpanWords {
		words = words[:sourceSpanWords]
	}
	return strings.Join(words, " ")
}

// TemplateOverview builds a generic study overview for title.
func TemplateOverview(title string) string {
	t := strings.TrimSpace(spaces.ReplaceAllString(title, " "))
	if t == "" {
		t = "This topic"
	}
	words := strings.Fields(t)
	if len(words) > 4 {
		words = words[:4]
	}

	lines := []string{
		"<strong>AI Overview: " + t + "</strong>",
		t + " is the foundational concept you need to understand to build reliable software and user experiences.",
		"At its core, " + t + " defines the essential structure, behavior and logic of the area it covers.",
		"Why it matters: mastering " + t + " reduces bugs and speeds development of real projects.",
		"Key subtopics: " + strings.Join(words, ", ") + ", best practices, important APIs, and integration patterns.",
		"Common real-world uses: small project prototypes, production services, component libraries, and learning exercises.",
		"First steps: 1) read one short tutorial to get the idea, 2) follow a 20-30 minute hands-on example, 3) implement a tiny project.",
		"Common pitfalls: overcomplicating the first implementation and copying without understanding.",
		"Quick tip: start with a working prototype and iterate. Ship minimal functionality first.",
		"Suggested learning path: learn the basics (1-2 days), build small projects (1-2 weeks), then refactor for reusability.",
		"Suggested resources: official docs, one short tutorial video (15-40 min), and a small project walkthrough.",
		"How to evaluate progress: can you implement the core feature without copying code, and explain each choice?",
		"Next milestone: build a complete small app that uses " + t + " plus one integration (API, storage, or state).",
		"<em>Keep notes as you go. They become the best revision material.</em>",
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(`<p style="margin:0 0 .5rem">`)
		sb.WriteString(l)
		sb.WriteString("</p>")
	}
	return sb.String()
}

// Resources finds up to three tutorial videos. Failures yield an empty list.
func (s *LearningService) Resources(ctx context.Context, query string) ResourcesResponse {
	q := SanitizeQuery(query)
	if q == "" || s.videos == nil {
		return ResourcesResponse{Resources: []Resource{}}
	}
	found, err := s.videos.Search(ctx, q+" tutorial", maxResources)
	if err != nil {
		s.log.Warn("video search failed", "query", q, "error", err)
		return ResourcesResponse{Resources: []Resource{}}
	}
	if found == nil {
		found = []Resource{}
	}
	return ResourcesResponse{Resources: found}
}

// SanitizeQuery drops parenthesized text and anything that is not a letter,
// digit or space.
func SanitizeQuery(q string) string {
	q = parenthetic.ReplaceAllString(q, "")
	q = nonAlnum.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func firstField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringField(m, k); s != "" {
			return s
		}
	}
	return ""
}
