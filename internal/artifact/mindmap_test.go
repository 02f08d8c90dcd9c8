package artifact

import (
	"strings"
	"testing"
)

func sampleMap(topic string) *MindMap {
	return &MindMap{
		NodeData: &Node{
			Topic: topic,
			ID:    "1",
			Children: []*Node{
				{Topic: topic + " A", ID: "2", Children: []*Node{{Topic: topic + " A1", ID: "3"}}},
				{Topic: topic + " B", ID: "4"},
			},
		},
		Arrows:    []Arrow{{ID: "a1", From: "2", To: "4"}},
		Summaries: []Summary{{ID: "s1", Label: "key", Parent: "1", Start: 0, End: 1}},
	}
}

func TestMerge_EveryChildOnceUnderGroup(t *testing.T) {
	parts := []Part{
		{Topic: "Intro", Map: sampleMap("intro")},
		{Topic: "Chapter 3", Map: sampleMap("three")},
	}
	merged := Merge("Book", parts)

	if merged.NodeData.ID != MergeRootID || merged.NodeData.Topic != "Book" {
		t.Fatalf("unexpected root %+v", merged.NodeData)
	}
	if len(merged.NodeData.Children) != 2 {
		t.Fatalf("expected 2 group nodes, got %d", len(merged.NodeData.Children))
	}

	flat := Flatten(merged)
	for n, p := range parts {
		gid := GroupNodeID(n + 1)
		for _, orig := range Flatten(&MindMap{NodeData: &Node{Children: p.Map.NodeData.Children}})[1:] {
			count := 0
			for _, f := range flat {
				if f.ID == gid+"-"+orig.ID && f.Topic == orig.Topic {
					count++
					if len(f.Ancestors) < 2 || f.Ancestors[1] != gid {
						t.Errorf("node %s not under %s: %v", f.ID, gid, f.Ancestors)
					}
				}
			}
			if count != 1 {
				t.Errorf("expected node %q once under %s, found %d", orig.Topic, gid, count)
			}
		}
	}

	if dups := DuplicateIDs(merged); len(dups) != 0 {
		t.Errorf("expected unique ids after merge, got duplicates %v", dups)
	}
}

func TestMerge_AnnotationsConcatenatedAndRemapped(t *testing.T) {
	merged := Merge("Book", []Part{
		{Topic: "One", Map: sampleMap("one")},
		{Topic: "Two", Map: sampleMap("two")},
	})
	if len(merged.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(merged.Summaries))
	}
	if merged.Summaries[0].Parent != "group_1" || merged.Summaries[1].Parent != "group_2" {
		t.Errorf("expected summaries re-parented to group nodes, got %+v", merged.Summaries)
	}
	if len(merged.Arrows) != 2 {
		t.Fatalf("expected 2 arrows, got %d", len(merged.Arrows))
	}
	if merged.Arrows[1].From != "group_2-2" || merged.Arrows[1].To != "group_2-4" {
		t.Errorf("unexpected arrow remap %+v", merged.Arrows[1])
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	m := sampleMap("x")
	Merge("Book", []Part{{Topic: "X", Map: m}})
	if m.NodeData.Children[0].ID != "2" {
		t.Errorf("input tree was mutated: %q", m.NodeData.Children[0].ID)
	}
	if m.Summaries[0].Parent != "1" {
		t.Errorf("input summaries were mutated: %q", m.Summaries[0].Parent)
	}
}

func TestMerge_ArrowDeltasAreCopied(t *testing.T) {
	m := sampleMap("x")
	m.Arrows[0].Delta1 = &Point{X: 1, Y: 2}
	m.Arrows[0].Delta2 = &Point{X: 3, Y: 4}

	merged := Merge("Book", []Part{{Topic: "X", Map: m}})
	a := merged.Arrows[0]
	if a.Delta1 == m.Arrows[0].Delta1 || a.Delta2 == m.Arrows[0].Delta2 {
		t.Fatal("merged arrow shares control points with its input")
	}
	a.Delta1.X = 99
	if m.Arrows[0].Delta1.X != 1 {
		t.Errorf("input arrow was mutated through the merged map")
	}
	if a.Delta2.Y != 4 {
		t.Errorf("control point not carried over: %+v", a.Delta2)
	}
}

func TestMerge_NilPartKeepsGroupNode(t *testing.T) {
	merged := Merge("Book", []Part{{Topic: "Empty"}})
	if len(merged.NodeData.Children) != 1 {
		t.Fatalf("expected group node for empty part")
	}
	if len(merged.NodeData.Children[0].Children) != 0 {
		t.Errorf("expected no children for empty part")
	}
}

func TestDuplicateIDs(t *testing.T) {
	m := &MindMap{NodeData: &Node{ID: "1", Children: []*Node{{ID: "2"}, {ID: "2"}, {ID: "1"}}}}
	dups := DuplicateIDs(m)
	if strings.Join(dups, ",") != "2,1" {
		t.Errorf("unexpected duplicates %v", dups)
	}
}
