package pgx

import (
	"reflect"
	"testing"

	"github.com/chogerlate/NovelVizAI/pkg/common"
)

func TestRosterFromGraph(t *testing.T) {
	graph := &common.CharacterGraph{
		NovelID: "novel-1",
		Nodes: []common.CharacterNode{
			{
				ID:              "n1",
				CanonicalName:   "Alice",
				Aliases:         []string{"Alice", "The Archivist"},
				FirstAppearance: 1,
				Mentions: []common.CharacterMention{
					{Chapter: 1, Name: "Alice"},
					{Chapter: 4, Name: "The Archivist"},
				},
			},
			{
				ID:              "n2",
				CanonicalName:   "Bob",
				Aliases:         []string{"Bob"},
				FirstAppearance: 2,
				Mentions: []common.CharacterMention{
					{Chapter: 2, Name: "Bob"},
				},
			},
		},
	}

	roster := rosterFromGraph(graph)
	want := []common.RosterEntry{
		{CanonicalID: "n1", Name: "Alice", Aliases: []string{"Alice", "The Archivist"}, LastActiveChapter: 4},
		{CanonicalID: "n2", Name: "Bob", Aliases: []string{"Bob"}, LastActiveChapter: 2},
	}
	if !reflect.DeepEqual(roster, want) {
		t.Errorf("roster = %+v, want %+v", roster, want)
	}
}
