// Package holiday turns what a team types as its return date into a timestamp.
package holiday

import (
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

type Parser struct {
	w *when.Parser
}

func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// ParseEnd accepts an ISO date or a phrase such as "in 3 weeks" or "next friday",
// read relative to now. The result is in UTC and must be after now.
func (p *Parser) ParseEnd(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("empty holiday end: %w", league.ErrInvalidHoliday)
	}

	end, ok := parseLayouts(input)
	if !ok {
		r, err := p.w.Parse(strings.ToLower(input), now)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse holiday end %q: %w", input, err)
		}
		if r == nil {
			return time.Time{}, fmt.Errorf("unrecognised holiday end %q: %w", input, league.ErrInvalidHoliday)
		}
		end = r.Time
	}

	end = end.UTC()
	if !end.After(now) {
		return time.Time{}, fmt.Errorf("holiday end %s is not in the future: %w", end.Format(time.DateOnly), league.ErrInvalidHoliday)
	}
	return end, nil
}

func parseLayouts(input string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, input, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
