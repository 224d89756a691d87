package dataset

import (
	"regexp"
	"strings"
	"time"
)

// datetimeNameHints are substrings that mark a column name as temporal.
var datetimeNameHints = []string{"date", "time", "timestamp", "datetime", "created", "modified"}

// datePatterns are the date-shaped regular expressions used for sampling
// text columns that lack a temporal name.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
	regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
	regexp.MustCompile(`\d{4}/\d{2}/\d{2}`),
	regexp.MustCompile(`\d{2}-\w{3}-\d{4}`),
	regexp.MustCompile(`\d{2}/\w{3}/\d{4}`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
}

// dateLayouts is the ordered strict-parse format list. The first layout that
// parses every value in a candidate column wins.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
	"02/Jan/2006",
	"2006-01-02 15:04:05",
	"01-02-2006",
	"01/02/06",
	"Jan 02 2006",
	"January 02 2006",
}

const sampleSize = 5

// InferDatetimeColumns classifies the table's temporal columns and converts
// them to timestamp cells in place, returning the updated table and the
// datetime column names in column order.
//
// The strategies run as an ordered chain, first success wins per column:
// pre-typed timestamp columns take absolute precedence (if any exist, only
// those are returned); otherwise candidates come from name hints plus
// date-shaped value samples, each candidate is strict-parsed against the
// ordered layout list, and columns no strict layout fully covers fall back
// to lenient per-value parsing where unparseable cells become missing.
func InferDatetimeColumns(t Table) (Table, []string) {
	if pre := t.ColumnsOfKind(KindTime); len(pre) > 0 {
		return t, pre
	}

	candidates := datetimeCandidates(t)

	var datetimeCols []string
	for _, name := range candidates {
		col, _ := t.Column(name)
		if convertStrict(col) {
			datetimeCols = append(datetimeCols, name)
			continue
		}
		if convertLenient(col) {
			datetimeCols = append(datetimeCols, name)
		}
	}
	return t, datetimeCols
}

// datetimeCandidates returns columns worth a parse attempt: first those whose
// lower-cased name contains a temporal hint, then remaining text columns
// where any of up to five sampled non-missing values looks date-shaped.
// Columns with no non-missing sample are skipped from pattern detection but
// can still qualify by name.
func datetimeCandidates(t Table) []string {
	var candidates []string
	named := make(map[string]bool)
	for _, c := range t.Columns {
		lower := strings.ToLower(c.Name)
		for _, hint := range datetimeNameHints {
			if strings.Contains(lower, hint) {
				candidates = append(candidates, c.Name)
				named[c.Name] = true
				break
			}
		}
	}

	for _, c := range t.Columns {
		if named[c.Name] || c.Kind() != KindText {
			continue
		}
		sample := sampleText(c)
		if len(sample) == 0 {
			continue
		}
		if anyMatchesDatePattern(sample) {
			candidates = append(candidates, c.Name)
		}
	}
	return candidates
}

func sampleText(c Column) []string {
	var sample []string
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			continue
		}
		sample = append(sample, cellText(cell))
		if len(sample) == sampleSize {
			break
		}
	}
	return sample
}

func anyMatchesDatePattern(sample []string) bool {
	for _, v := range sample {
		for _, p := range datePatterns {
			if p.MatchString(v) {
				return true
			}
		}
	}
	return false
}

// convertStrict tries each layout against every non-missing value; the first
// layout that parses all of them converts the column in place.
func convertStrict(c *Column) bool {
	for _, layout := range dateLayouts {
		parsed := make([]time.Time, len(c.Cells))
		ok := true
		any := false
		for i, cell := range c.Cells {
			if cell.IsMissing() {
				continue
			}
			ts, err := time.Parse(layout, strings.TrimSpace(cellText(cell)))
			if err != nil {
				ok = false
				break
			}
			parsed[i] = ts
			any = true
		}
		if ok && any {
			for i := range c.Cells {
				if c.Cells[i].IsMissing() {
					continue
				}
				c.Cells[i] = TimeCell(parsed[i])
			}
			return true
		}
	}
	return false
}

// convertLenient parses each value against every layout independently,
// turning unparseable cells into missing. The column is accepted only when
// at least one value parsed. This is an intentional lossy fallback: partial
// datetime columns stay usable downstream.
func convertLenient(c *Column) bool {
	parsedAny := false
	cells := make([]Cell, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.IsMissing() {
			cells[i] = Missing()
			continue
		}
		text := strings.TrimSpace(cellText(cell))
		converted := false
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, text); err == nil {
				cells[i] = TimeCell(ts)
				converted = true
				parsedAny = true
				break
			}
		}
		if !converted {
			cells[i] = Missing()
		}
	}
	if !parsedAny {
		return false
	}
	c.Cells = cells
	return true
}

func cellText(c Cell) string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindTime:
		return c.Time.Format(TimestampLayout)
	default:
		return ""
	}
}
