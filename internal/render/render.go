// Package render turns a task store into text: DOT digraphs, box-drawing
// trees and markdown reports.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evanschultz/aplan/internal/domain"
)

// Options controls what each task line carries.
type Options struct {
	ShowMembers bool
	ShowValues  bool
}

// DefaultOptions returns the label options used when no config overrides them.
func DefaultOptions() Options {
	return Options{ShowMembers: true}
}

// Label formats one task the way every renderer prints it.
// Non-root tasks read "id - name icon", the root reads "name icon".
func Label(tasks *domain.Tasks, task domain.Task, opts Options) string {
	var b strings.Builder
	if task.ID.IsRoot() {
		fmt.Fprintf(&b, "%s %s", task.Name, task.Status.Icon())
	} else {
		fmt.Fprintf(&b, "%s - %s %s", task.ID, task.Name, task.Status.Icon())
	}
	if opts.ShowValues {
		fmt.Fprintf(&b, " (pv %s, ac %s)", FormatAmount(task.PlannedValue), FormatAmount(task.ActualCost))
	}
	if opts.ShowMembers && !task.ID.IsRoot() {
		members := task.Members
		if task.IsTrunk() {
			if names, err := tasks.Assignees(task.ID); err == nil {
				members = names
			}
		}
		fmt.Fprintf(&b, " - [%s]", strings.Join(members, " "))
	}
	return b.String()
}

// FormatAmount prints v with the shortest representation that round-trips.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StatsLine summarizes the earned-value figures on one line.
func StatsLine(m domain.EarnedValue) string {
	return fmt.Sprintf(
		"earned value: %s, spi: %s, sv: %s, cpi: %s, cv: %s",
		FormatAmount(m.EarnedValue),
		FormatAmount(m.SPI),
		FormatAmount(m.SV),
		FormatAmount(m.CPI),
		FormatAmount(m.CV),
	)
}
