package artifact

import (
	"fmt"
)

// MindMap is the tree document exchanged with the backend and the renderer.
type MindMap struct {
	NodeData  *Node     `json:"nodeData"`
	Arrows    []Arrow   `json:"arrows,omitempty"`
	Summaries []Summary `json:"summaries,omitempty"`
}

// Node is one topic in a mind map.
type Node struct {
	Topic    string   `json:"topic"`
	ID       string   `json:"id"`
	Tags     []string `json:"tags,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// Arrow is a cross-link between two nodes.
type Arrow struct {
	ID            string `json:"id"`
	Label         string `json:"label,omitempty"`
	From          string `json:"from"`
	To            string `json:"to"`
	Delta1        *Point `json:"delta1,omitempty"`
	Delta2        *Point `json:"delta2,omitempty"`
	Bidirectional bool   `json:"bidirectional,omitempty"`
}

// Point is an arrow control-point offset.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Summary annotates a contiguous run of a parent's children.
type Summary struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Parent string `json:"parent"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// ParseMindMap decodes raw model output into a MindMap. A document without
// nodeData is malformed.
func ParseMindMap(raw, label string) (*MindMap, error) {
	var m MindMap
	if err := Decode(raw, label, &m); err != nil {
		return nil, err
	}
	if m.NodeData == nil {
		return nil, &MalformedError{Label: label, Reason: "missing nodeData"}
	}
	return &m, nil
}

// DuplicateIDs returns node ids that occur more than once, in walk order.
func DuplicateIDs(m *MindMap) []string {
	if m == nil || m.NodeData == nil {
		return nil
	}
	seen := make(map[string]int)
	var dups []string
	Walk(m.NodeData, func(n *Node, _ []string) {
		seen[n.ID]++
		if seen[n.ID] == 2 {
			dups = append(dups, n.ID)
		}
	})
	return dups
}

// Walk visits n and its descendants depth-first. path holds the ids of the
// ancestors of the visited node, root first.
func Walk(n *Node, fn func(n *Node, path []string)) {
	var walk func(n *Node, path []string)
	walk = func(n *Node, path []string) {
		if n == nil {
			return
		}
		fn(n, path)
		next := append(path[:len(path):len(path)], n.ID)
		for _, c := range n.Children {
			walk(c, next)
		}
	}
	walk(n, nil)
}

// FlatNode is a node with its ancestry, as produced by Flatten.
type FlatNode struct {
	ID        string
	Topic     string
	Ancestors []string
}

// Flatten lists every node of m in depth-first order.
func Flatten(m *MindMap) []FlatNode {
	if m == nil {
		return nil
	}
	var out []FlatNode
	Walk(m.NodeData, func(n *Node, path []string) {
		out = append(out, FlatNode{ID: n.ID, Topic: n.Topic, Ancestors: path})
	})
	return out
}

// Part is one per-group tree taking part in a merge.
type Part struct {
	Topic string
	Map   *MindMap
}

// MergeRootID is the id of the synthetic root created by Merge.
const MergeRootID = "0"

// GroupNodeID returns the synthetic id assigned to the n-th (1-based) part of
// a merge.
func GroupNodeID(n int) string {
	return fmt.Sprintf("group_%d", n)
}

// Merge combines per-group trees under a synthetic root titled title. The
// n-th part becomes a child with id group_<n> holding that part's root
// children. Ids inside a part are prefixed with its group id so trees that
// reuse ids stay collision free; arrows and summaries are rewritten to match
// and concatenated in part order.
func Merge(title string, parts []Part) *MindMap {
	root := &Node{Topic: title, ID: MergeRootID}
	out := &MindMap{NodeData: root, Arrows: []Arrow{}, Summaries: []Summary{}}

	for i, p := range parts {
		gid := GroupNodeID(i + 1)
		group := &Node{Topic: p.Topic, ID: gid}
		root.Children = append(root.Children, group)
		if p.Map == nil || p.Map.NodeData == nil {
			continue
		}

		rootID := p.Map.NodeData.ID
		remap := func(id string) string {
			if id == rootID {
				return gid
			}
			return gid + "-" + id
		}

		for _, c := range p.Map.NodeData.Children {
			group.Children = append(group.Children, cloneNode(c, remap))
		}
		for _, a := range p.Map.Arrows {
			a = copyArrow(a)
			a.ID = gid + "-" + a.ID
			a.From = remap(a.From)
			a.To = remap(a.To)
			out.Arrows = append(out.Arrows, a)
		}
		for _, s := range p.Map.Summaries {
			s.ID = gid + "-" + s.ID
			s.Parent = remap(s.Parent)
			out.Summaries = append(out.Summaries, s)
		}
	}
	return out
}

func cloneNode(n *Node, remap func(string) string) *Node {
	if n == nil {
		return nil
	}
	c := &Node{Topic: n.Topic, ID: remap(n.ID)}
	if len(n.Tags) > 0 {
		c.Tags = append([]string(nil), n.Tags...)
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, cloneNode(child, remap))
	}
	return c
}

// copyArrow detaches a's control points from the source map.
func copyArrow(a Arrow) Arrow {
	if a.Delta1 != nil {
		p := *a.Delta1
		a.Delta1 = &p
	}
	if a.Delta2 != nil {
		p := *a.Delta2
		a.Delta2 = &p
	}
	return a
}

// Clone returns a deep copy of m.
func (m *MindMap) Clone() *MindMap {
	if m == nil {
		return nil
	}
	keep := func(id string) string { return id }
	out := &MindMap{NodeData: cloneNode(m.NodeData, keep)}
	if m.Arrows != nil {
		out.Arrows = make([]Arrow, len(m.Arrows))
		for i, a := range m.Arrows {
			out.Arrows[i] = copyArrow(a)
		}
	}
	if m.Summaries != nil {
		out.Summaries = append([]Summary{}, m.Summaries...)
	}
	return out
}
