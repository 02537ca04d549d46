package render

import (
	"strings"

	"github.com/evanschultz/aplan/internal/domain"
)

// Tree connectors.
const (
	branchMid  = "├─ "
	branchLast = "└─ "
	indentMid  = "│  "
	indentLast = "   "
)

// Tree renders the store as an indented box-drawing tree headed by the root.
func Tree(tasks *domain.Tasks, opts Options) string {
	var b strings.Builder
	root := tasks.Root()
	b.WriteString(Label(tasks, root, opts))
	b.WriteByte('\n')
	writeSubtree(&b, tasks, root, "", opts)
	return b.String()
}

// writeSubtree prints the children of parent. A child with a stored next
// sibling gets the mid connector, the last one gets the closing connector.
func writeSubtree(b *strings.Builder, tasks *domain.Tasks, parent domain.Task, prefix string, opts Options) {
	children, err := tasks.Children(parent.ID)
	if err != nil {
		return
	}
	for _, child := range children {
		branch, indent := branchLast, indentLast
		if _, err := tasks.NextSibling(child.ID); err == nil {
			branch, indent = branchMid, indentMid
		}
		b.WriteString(prefix)
		b.WriteString(branch)
		b.WriteString(Label(tasks, child, opts))
		b.WriteByte('\n')
		writeSubtree(b, tasks, child, prefix+indent, opts)
	}
}
