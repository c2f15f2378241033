package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseDay turns a --date value into a YYYY-MM-DD day. Empty means today and
// is left for the server to resolve; natural phrases such as "yesterday" are
// taken relative to now on the UTC calendar, the same one streak.Today uses.
func parseDay(expr string, now time.Time) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", nil
	}
	if streak.ValidDate(expr) {
		return expr, nil
	}
	r, err := dateParser.Parse(expr, now.UTC())
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", expr, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognized date %q", expr)
	}
	return r.Time.UTC().Format(streak.DateLayout), nil
}
