package render

import (
	"fmt"
	"strings"

	"github.com/evanschultz/aplan/internal/domain"
)

// DOT renders the store as a Graphviz digraph whose graph label carries the
// earned-value summary. Edges run parent to child in depth-first order.
func DOT(tasks *domain.Tasks, opts Options) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	fmt.Fprintf(&b, "label=%s\n", quoteDOT(StatsLine(tasks.Metrics())))
	writeEdges(&b, tasks, tasks.Root(), opts)
	b.WriteString("}")
	return b.String()
}

// writeEdges emits one edge per child, then descends into it.
func writeEdges(b *strings.Builder, tasks *domain.Tasks, parent domain.Task, opts Options) {
	children, err := tasks.Children(parent.ID)
	if err != nil {
		return
	}
	from := quoteDOT(Label(tasks, parent, opts))
	for _, child := range children {
		fmt.Fprintf(b, "\t%s -> %s\n", from, quoteDOT(Label(tasks, child, opts)))
		writeEdges(b, tasks, child, opts)
	}
}

// quoteDOT wraps s as a DOT string literal.
func quoteDOT(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
