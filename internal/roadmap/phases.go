package roadmap

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Phase is one stage of a generated learning roadmap.
type Phase struct {
	Name       string   `json:"name"`
	Milestones []string `json:"milestones"`
}

const (
	maxMilestones      = 12
	maxFallbackLines   = 8
	noMilestonesMarker = "(no milestones detected)"
)

var (
	phaseHeading  = regexp.MustCompile(`(?im)^phase\s*\d+`)
	stepHeading   = regexp.MustCompile(`(?im)^step\s*\d+`)
	blankLines    = regexp.MustCompile(`\n{2,}`)
	titlePattern  = regexp.MustCompile(`(?i)^(phase|step)\s*\d+\s*[:\-–—]?\s*(.*)$`)
	headingPrefix = regexp.MustCompile(`(?i)^(phase|step)\s*\d+`)
	bulletPrefix  = regexp.MustCompile(`^[\-\*\x{2022}]\s*`)
	numberPrefix  = regexp.MustCompile(`^\d+\.\s*`)
	trailingSep   = regexp.MustCompile(`\s*[:\-–—]+\s*$`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// CleanLine strips list markers, markdown emphasis and trailing separators.
func CleanLine(line string) string {
	s := strings.TrimSpace(line)
	s = bulletPrefix.ReplaceAllString(s, "")
	s = numberPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "`", "")
	s = trailingSep.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParsePhases converts free-form model output into phases. Chunks are split
// on "Phase N" headings, then "Step N" headings, then blank lines. If nothing
// usable is found the first lines of the text become a single phase.
func ParsePhases(text string) []Phase {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	chunks := splitBefore(text, phaseHeading)
	if len(chunks) <= 1 {
		chunks = splitBefore(text, stepHeading)
	}
	if len(chunks) <= 1 {
		chunks = nonEmpty(blankLines.Split(text, -1))
	}
	if len(chunks) == 0 {
		chunks = nonEmpty([]string{text})
	}

	phases := make([]Phase, 0, len(chunks))
	for _, chunk := range chunks {
		lines := cleanLines(chunk)
		if len(lines) == 0 {
			continue
		}
		title := lines[0]
		name := title
		if m := titlePattern.FindStringSubmatch(title); m != nil {
			if rest := strings.TrimSpace(m[2]); rest != "" {
				name = rest
			} else {
				name = whitespace.ReplaceAllString(strings.TrimSpace(title), " ")
			}
		}

		milestones := lines[1:]
		if len(milestones) == 0 {
			for _, l := range lines {
				if headingPrefix.MatchString(l) || l == title {
					continue
				}
				milestones = append(milestones, l)
			}
		}
		if len(milestones) > maxMilestones {
			milestones = milestones[:maxMilestones]
		}
		if len(milestones) == 0 {
			milestones = []string{noMilestonesMarker}
		}
		if name == "" {
			name = "Phase"
		}
		phases = append(phases, Phase{Name: name, Milestones: append([]string(nil), milestones...)})
	}

	if len(phases) == 0 {
		lines := cleanLines(text)
		if len(lines) > maxFallbackLines {
			lines = lines[:maxFallbackLines]
		}
		if len(lines) == 0 {
			lines = []string{noMilestonesMarker}
		}
		phases = append(phases, Phase{Name: "Phase 1", Milestones: lines})
	}
	return phases
}

// PhasesPayload wraps phases in the shape stored under payload.roadmap.
func PhasesPayload(phases []Phase) []any {
	out := make([]any, len(phases))
	for i, p := range phases {
		milestones := make([]any, len(p.Milestones))
		for j, m := range p.Milestones {
			milestones[j] = m
		}
		out[i] = map[string]any{"name": p.Name, "milestones": milestones}
	}
	return out
}

// Mastery is the rounded percentage of correct answers.
func Mastery(correct, total int) int {
	if total < 1 {
		total = 1
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// ProgressPatch builds the {nodeId: {type: {mastery, lastUpdated}}} patch
// submitted after a practice round.
func ProgressPatch(nodeID, questionType string, mastery int, at time.Time) map[string]any {
	return map[string]any{
		nodeID: map[string]any{
			questionType: map[string]any{
				"mastery":     mastery,
				"lastUpdated": FormatTimestamp(at),
			},
		},
	}
}

func splitBefore(text string, re *regexp.Regexp) []string {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nonEmpty([]string{text})
	}
	var parts []string
	start := 0
	for _, loc := range locs {
		if loc[0] > start {
			parts = append(parts, text[start:loc[0]])
		}
		start = loc[0]
	}
	parts = append(parts, text[start:])
	return nonEmpty(parts)
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func cleanLines(chunk string) []string {
	var out []string
	for _, l := range strings.Split(chunk, "\n") {
		if c := CleanLine(l); c != "" {
			out = append(out, c)
		}
	}
	return out
}
