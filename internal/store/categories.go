package store

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// CreateCategory creates a category under parentID, or at the root when
// parentID is nil.
func CreateCategory(ctx context.Context, db *sql.DB, name string, parentID *int64) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}

	var c *model.Category
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := checkParent(ctx, tx, 0, parentID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, parent_id) VALUES (?, ?)`,
			name, nullInt64(parentID),
		)
		if err != nil {
			return fmt.Errorf("creating category: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting category id: %w", err)
		}

		c, err = GetCategory(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategory returns a category by ID, or nil if it doesn't exist.
func GetCategory(ctx context.Context, q DBTX, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, parent_id, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, q DBTX) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, parent_id, created_at FROM categories ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames a category and moves it under parentID. Moving a
// category below itself or any of its descendants fails with
// model.ErrCyclicCategory.
func UpdateCategory(ctx context.Context, db *sql.DB, id int64, name string, parentID *int64) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}

	var c *model.Category
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		current, err := GetCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("category %d: %w", id, model.ErrNotFound)
		}

		if err := checkParent(ctx, tx, id, parentID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, parent_id = ? WHERE id = ?`,
			name, nullInt64(parentID), id,
		); err != nil {
			return fmt.Errorf("updating category: %w", err)
		}

		c, err = GetCategory(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory deletes a leaf category. Items and assets filed under it
// lose their category reference; they are never deleted.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		c, err := GetCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("category %d: %w", id, model.ErrNotFound)
		}

		children, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = ?)`, id)
		if err != nil {
			return fmt.Errorf("checking child categories: %w", err)
		}
		if children {
			return fmt.Errorf("category %d: %w", id, model.ErrHasChildren)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE items SET category_id = NULL WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("detaching items from category: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE assets SET category_id = NULL WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("detaching assets from category: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting category: %w", err)
		}
		return nil
	})
}

// FullPath returns the names from the root down to the category, joined by
// model.CategoryPathSeparator.
func FullPath(ctx context.Context, q DBTX, id int64) (string, error) {
	chain, err := ancestry(ctx, q, id)
	if err != nil {
		return "", err
	}

	names := make([]string, len(chain))
	for i, c := range chain {
		names[len(chain)-1-i] = c.Name
	}
	return strings.Join(names, model.CategoryPathSeparator), nil
}

// DisplayDepth returns the category's distance from the root; root
// categories have depth 0.
func DisplayDepth(ctx context.Context, q DBTX, id int64) (int, error) {
	chain, err := ancestry(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return len(chain) - 1, nil
}

// OrderedHierarchy returns every category reachable from a root in
// depth-first order, siblings sorted by name, with depth and full path.
func OrderedHierarchy(ctx context.Context, q DBTX) ([]model.CategoryNode, error) {
	all, err := ListCategories(ctx, q)
	if err != nil {
		return nil, err
	}

	children := make(map[int64][]model.Category)
	for _, c := range all {
		var parent int64
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		children[parent] = append(children[parent], c)
	}
	for _, siblings := range children {
		slices.SortStableFunc(siblings, func(a, b model.Category) int {
			if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}

	nodes := make([]model.CategoryNode, 0, len(all))
	var walk func(parent int64, depth int, path string)
	walk = func(parent int64, depth int, path string) {
		for _, c := range children[parent] {
			p := c.Name
			if path != "" {
				p = path + model.CategoryPathSeparator + c.Name
			}
			nodes = append(nodes, model.CategoryNode{Category: c, Depth: depth, Path: p})
			walk(c.ID, depth+1, p)
		}
	}
	walk(0, 0, "")

	return nodes, nil
}

// ancestry returns the category followed by its ancestors up to the root.
// A loop in stored data is reported as model.ErrCyclicCategory instead of
// walking forever.
func ancestry(ctx context.Context, q DBTX, id int64) ([]model.Category, error) {
	var chain []model.Category
	seen := make(map[int64]bool)

	next := &id
	for next != nil {
		if seen[*next] {
			return nil, fmt.Errorf("category %d: %w", id, model.ErrCyclicCategory)
		}
		seen[*next] = true

		c, err := GetCategory(ctx, q, *next)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("category %d: %w", *next, model.ErrNotFound)
		}
		chain = append(chain, *c)
		next = c.ParentID
	}
	return chain, nil
}

// checkParent validates a proposed parent for category id (0 for a category
// that does not exist yet): the parent must exist and id must not appear in
// the parent's ancestor chain.
func checkParent(ctx context.Context, q DBTX, id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if id != 0 && *parentID == id {
		return fmt.Errorf("category %d: %w", id, model.ErrCyclicCategory)
	}

	chain, err := ancestry(ctx, q, *parentID)
	if err != nil {
		return err
	}
	for _, c := range chain {
		if c.ID == id {
			return fmt.Errorf("category %d under %d: %w", id, *parentID, model.ErrCyclicCategory)
		}
	}
	return nil
}

// requireCategory reports model.ErrNotFound for a non-nil id with no
// matching category.
func requireCategory(ctx context.Context, q DBTX, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := exists(ctx, q, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = ?)`, *id)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if !ok {
		return fmt.Errorf("category %d: %w", *id, model.ErrNotFound)
	}
	return nil
}
