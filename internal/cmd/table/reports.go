// Package table converts job reports into rows for the table output format.
package table

import (
	"strconv"
	"strings"

	"github.com/agentstation/gamesync/internal/cmd/emoji"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// FromReport converts the reports the jobs return. It returns false for
// values it has no layout for.
func FromReport(report any) (Data, bool) {
	switch r := report.(type) {
	case *jobs.EnrichResult:
		return EnrichToTableData(r), true
	case *jobs.SyncResult:
		return SyncToTableData(r), true
	case *jobs.CollectResult:
		return CollectToTableData(r), true
	case *jobs.PipelineResult:
		return PipelineToTableData(r), true
	case []jobs.Job:
		return JobsToTableData(r), true
	default:
		return Data{}, false
	}
}

// EnrichToTableData lists the counters of an enrichment run.
func EnrichToTableData(r *jobs.EnrichResult) Data {
	rows := [][]string{
		{"Job", r.Job},
		{"Input", r.Input},
		{"Output", r.Output},
		{"Already done", itoa(r.AlreadyDone)},
		{"Stale", itoa(r.Stale)},
	}
	if s := r.Stats; s != nil {
		rows = append(rows,
			[]string{"Candidates", itoa(s.Total)},
			[]string{"Queued", itoa(s.Queued)},
			[]string{"Skipped", itoa(s.Skipped)},
			[]string{"Not in validator", itoa(s.Invalid)},
			[]string{"Not eligible", itoa(s.Ineligible)},
			[]string{"Written", i64toa(s.Written)},
			[]string{"Unavailable", i64toa(s.Unavailable)},
			[]string{"Failed", i64toa(s.Failed)},
			[]string{"Rate limited", i64toa(s.RateLimited)},
			[]string{"Duration", s.Duration.String()},
		)
		if s.Interrupted {
			rows = append(rows, []string{"Status", emoji.Warning + " interrupted"})
		}
	}
	return Data{
		Headers:         []string{"PROPERTY", "VALUE"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// SyncToTableData lists one row per derived store.
func SyncToTableData(r *jobs.SyncResult) Data {
	var rows [][]string
	for _, s := range r.Stores {
		status := emoji.Success + " in sync"
		switch {
		case s.WasApplied():
			status = emoji.Warning + " reconciled"
		case s.HasChanges():
			status = emoji.Warning + " would change"
		}
		backup := ""
		if s.Backup != nil {
			backup = s.Backup.Path
		}
		rows = append(rows, []string{
			s.Path, itoa(s.Total), itoa(s.Kept), itoa(s.Removed), itoa(s.Duplicates), itoa(s.ParseErrors), backup, status,
		})
	}
	for _, path := range r.Missing {
		rows = append(rows, []string{path, "", "", "", "", "", "", emoji.Optional + " missing"})
	}
	return Data{
		Headers: []string{"STORE", "LINES", "KEPT", "REMOVED", "DUPLICATES", "PARSE ERRORS", "BACKUP", "STATUS"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignDefault, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignDefault, AlignDefault,
		},
	}
}

// CollectToTableData lists one row per search pass and the total.
func CollectToTableData(r *jobs.CollectResult) Data {
	var rows [][]string
	for i, p := range r.Passes {
		order := p.SortBy
		if order == "" {
			order = "relevance"
		}
		rows = append(rows, []string{itoa(i + 1), order, itoa(p.Found)})
	}
	rows = append(rows, []string{"", "total (" + r.Path + ")", itoa(r.Total)})
	return Data{
		Headers:         []string{"PASS", "ORDER", "GAMES"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignCenter, AlignDefault, AlignRight},
	}
}

// PipelineToTableData lists one row per step that ran.
func PipelineToTableData(r *jobs.PipelineResult) Data {
	var rows [][]string
	for _, s := range r.Steps {
		status := emoji.Success + " ok"
		if s.Error != "" {
			status = emoji.Error + " " + Truncate(s.Error, 80)
		}
		rows = append(rows, []string{s.Job, s.Duration.String(), status})
	}
	return Data{
		Headers: []string{"JOB", "DURATION", "STATUS"},
		Rows:    rows,
	}
}

// JobsToTableData lists the registered jobs.
func JobsToTableData(list []jobs.Job) Data {
	rows := make([][]string, 0, len(list))
	for _, j := range list {
		rows = append(rows, []string{j.Name, j.Description})
	}
	return Data{Headers: []string{"JOB", "DESCRIPTION"}, Rows: rows}
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max || max < 2 {
		return string(r)
	}
	return string(r[:max-1]) + "…"
}

func itoa(n int) string { return strconv.Itoa(n) }

func i64toa(n int64) string { return strconv.FormatInt(n, 10) }
