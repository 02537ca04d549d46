package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/aplan/internal/domain"
	"gopkg.in/yaml.v3"
)

// outline is an expand document. Either form is accepted:
//
//	parent: "1"
//	tasks:
//	  - name: Scope
//	    tasks: [Interviews, Summary]
//	  - Budget
//
// or a bare task list, which is added under the root.
type outline struct {
	Parent string        `yaml:"parent"`
	Tasks  []outlineNode `yaml:"tasks"`
}

// outlineNode is one task with optional nested children.
type outlineNode struct {
	Name  string        `yaml:"name"`
	Tasks []outlineNode `yaml:"tasks"`
}

// UnmarshalYAML accepts a plain scalar as a childless node.
func (n *outlineNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		n.Name = value.Value
		return nil
	}
	type plain outlineNode
	var out plain
	if err := value.Decode(&out); err != nil {
		return err
	}
	*n = outlineNode(out)
	return nil
}

// parseOutline decodes an expand document.
func parseOutline(content []byte) (outline, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return outline{}, fmt.Errorf("decode outline yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return outline{}, errors.New("outline is empty")
	}

	var out outline
	body := doc.Content[0]
	var err error
	if body.Kind == yaml.SequenceNode {
		err = body.Decode(&out.Tasks)
	} else {
		err = body.Decode(&out)
	}
	if err != nil {
		return outline{}, fmt.Errorf("decode outline yaml: %w", err)
	}
	if len(out.Tasks) == 0 {
		return outline{}, errors.New("outline has no tasks")
	}
	return out, nil
}

// items flattens the outline into expand items in insertion order. Ids of
// new tasks are predicted from the current child counts of tasks.
func (o outline) items(tasks *domain.Tasks) ([]domain.ExpandItem, error) {
	parentID := domain.RootID()
	if strings.TrimSpace(o.Parent) != "" {
		id, err := parseTaskArg(o.Parent)
		if err != nil {
			return nil, err
		}
		parentID = id
	}
	parent, err := tasks.Get(parentID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ExpandItem, 0)
	appendOutlineNodes(&out, parentID, parent.NumChildren, o.Tasks)
	return out, nil
}

// appendOutlineNodes appends nodes under parent whose existing child count is existing.
func appendOutlineNodes(out *[]domain.ExpandItem, parent domain.TaskID, existing uint32, nodes []outlineNode) {
	for i, node := range nodes {
		*out = append(*out, domain.ExpandItem{Parent: parent, Name: node.Name})
		if len(node.Tasks) > 0 {
			appendOutlineNodes(out, parent.Child(existing+uint32(i)+1), 0, node.Tasks)
		}
	}
}
