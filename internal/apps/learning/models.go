package learning

import "github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"

type GenerateRoadmapRequest struct {
	Role string `json:"role"`
}

type GeneratedRoadmap struct {
	Phases []roadmap.Phase `json:"phases"`
}

type GenerateRoadmapResponse struct {
	Roadmap GeneratedRoadmap `json:"roadmap"`
}

type QuestionsRequest struct {
	NodeID     string   `json:"nodeId"`
	Text       string   `json:"text"`
	Types      []string `json:"types"`
	Count      int      `json:"count"`
	Difficulty string   `json:"difficulty"`
}

// Question is a practice item. Options, Answer and Metadata keep whatever
// shape the model produced.
type Question struct {
	ID          string `json:"id"`
	NodeID      string `json:"nodeId"`
	Type        string `json:"type"`
	Stem        string `json:"stem"`
	Options     any    `json:"options"`
	Answer      any    `json:"answer"`
	Explanation string `json:"explanation"`
	Difficulty  string `json:"difficulty"`
	Metadata    any    `json:"metadata"`
}

type QuestionsResponse struct {
	Questions []Question `json:"questions"`
}

type TheoryResponse struct {
	Theory     string `json:"theory"`
	SourceSpan string `json:"source_span"`
}

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type ResourcesResponse struct {
	Resources []Resource `json:"resources"`
}
