package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

func TestCategoryPathAndDepth(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tools, _ := CreateCategory(ctx, database, "Tools", nil)
	power, _ := CreateCategory(ctx, database, "Power", &tools.ID)
	drills, err := CreateCategory(ctx, database, "Drills", &power.ID)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	path, err := FullPath(ctx, database, drills.ID)
	if err != nil {
		t.Fatalf("FullPath: %v", err)
	}
	if path != "Tools > Power > Drills" {
		t.Errorf("unexpected path %q", path)
	}

	depth, _ := DisplayDepth(ctx, database, drills.ID)
	if depth != 2 {
		t.Errorf("expected depth 2, got %d", depth)
	}
	rootDepth, _ := DisplayDepth(ctx, database, tools.ID)
	if rootDepth != 0 {
		t.Errorf("expected root depth 0, got %d", rootDepth)
	}
}

func TestCategoryCycleRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _ := CreateCategory(ctx, database, "A", nil)
	b, _ := CreateCategory(ctx, database, "B", &a.ID)
	c, _ := CreateCategory(ctx, database, "C", &b.ID)

	if _, err := UpdateCategory(ctx, database, a.ID, "A", &c.ID); !errors.Is(err, model.ErrCyclicCategory) {
		t.Errorf("expected ErrCyclicCategory moving A under C, got %v", err)
	}
	if _, err := UpdateCategory(ctx, database, a.ID, "A", &a.ID); !errors.Is(err, model.ErrCyclicCategory) {
		t.Errorf("expected ErrCyclicCategory for self-parent, got %v", err)
	}

	got, _ := GetCategory(ctx, database, a.ID)
	if got.ParentID != nil {
		t.Errorf("rejected move changed parent to %d", *got.ParentID)
	}

	missing := int64(999)
	if _, err := CreateCategory(ctx, database, "D", &missing); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestOrderedHierarchy(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	office, _ := CreateCategory(ctx, database, "Office", nil)
	tools, _ := CreateCategory(ctx, database, "tools", nil)
	CreateCategory(ctx, database, "Paper", &office.ID)
	CreateCategory(ctx, database, "Hand", &tools.ID)
	CreateCategory(ctx, database, "Cables", &office.ID)

	nodes, err := OrderedHierarchy(ctx, database)
	if err != nil {
		t.Fatalf("OrderedHierarchy: %v", err)
	}

	want := []struct {
		path  string
		depth int
	}{
		{"Office", 0},
		{"Office > Cables", 1},
		{"Office > Paper", 1},
		{"tools", 0},
		{"tools > Hand", 1},
	}
	if len(nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(nodes))
	}
	for i, w := range want {
		if nodes[i].Path != w.path || nodes[i].Depth != w.depth {
			t.Errorf("node %d: expected %q@%d, got %q@%d", i, w.path, w.depth, nodes[i].Path, nodes[i].Depth)
		}
	}
}

func TestDeleteCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	parent, _ := CreateCategory(ctx, database, "Parent", nil)
	child, _ := CreateCategory(ctx, database, "Child", &parent.ID)

	if err := DeleteCategory(ctx, database, parent.ID); !errors.Is(err, model.ErrHasChildren) {
		t.Errorf("expected ErrHasChildren, got %v", err)
	}

	item, err := CreateItem(ctx, database, &TrackingIDs{}, NewItem{Name: "Filed", CategoryID: &child.ID}, user.ID)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := DeleteCategory(ctx, database, child.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got == nil {
		t.Fatal("item was deleted with its category")
	}
	if got.CategoryID != nil {
		t.Errorf("expected category reference cleared, got %d", *got.CategoryID)
	}
}
