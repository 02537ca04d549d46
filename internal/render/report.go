package render

import (
	"fmt"
	"strings"

	"github.com/evanschultz/aplan/internal/domain"
)

// Report renders a markdown status report for the project: earned-value
// figures, leaf buckets and member workload.
func Report(project domain.Project) string {
	tasks := project.Tasks
	m := tasks.Metrics()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", project.Name())

	b.WriteString("## Earned value\n\n")
	b.WriteString("| metric | value |\n|---|---|\n")
	rows := []struct {
		name  string
		value string
	}{
		{"planned value", FormatAmount(m.PlannedValue)},
		{"actual cost", FormatAmount(m.ActualCost)},
		{"completion", fmt.Sprintf("%s%% (%d/%d leaves)", FormatAmount(m.CompletionPercentage*100), m.DoneCount, m.LeafCount)},
		{"earned value", FormatAmount(m.EarnedValue)},
		{"spi", FormatAmount(m.SPI)},
		{"sv", FormatAmount(m.SV)},
		{"cpi", FormatAmount(m.CPI)},
		{"cv", FormatAmount(m.CV)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", row.name, row.value)
	}

	writeBucket(&b, "Todo", tasks.Todo())
	writeBucket(&b, "Done", tasks.Done())

	members := project.Members.List()
	if len(members) > 0 {
		b.WriteString("\n## Members\n\n")
		for _, member := range members {
			assigned := tasks.AssignedTo(member.Name)
			ids := make([]string, 0, len(assigned))
			for _, task := range assigned {
				ids = append(ids, task.ID.String())
			}
			if len(ids) == 0 {
				fmt.Fprintf(&b, "- %s: unassigned\n", member.Name)
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", member.Name, strings.Join(ids, ", "))
		}
	}
	return b.String()
}

// writeBucket prints one leaf bucket as a bullet list.
func writeBucket(b *strings.Builder, title string, tasks []domain.Task) {
	fmt.Fprintf(b, "\n## %s (%d)\n\n", title, len(tasks))
	if len(tasks) == 0 {
		b.WriteString("_none_\n")
		return
	}
	for _, task := range tasks {
		fmt.Fprintf(b, "- `%s` %s (pv %s, ac %s)\n", task.ID, task.Name, FormatAmount(task.PlannedValue), FormatAmount(task.ActualCost))
	}
}
