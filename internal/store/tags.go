package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// tagLink describes the association table joining tags to one subject kind.
type tagLink struct {
	table   string
	column  string
	subject string
}

func tagLinkFor(kind string) (tagLink, error) {
	switch kind {
	case model.SubjectItem:
		return tagLink{table: "item_tags", column: "item_id", subject: "items"}, nil
	case model.SubjectAsset:
		return tagLink{table: "asset_tags", column: "asset_id", subject: "assets"}, nil
	}
	return tagLink{}, fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, kind)
}

// tagLinks lists every association table a tag delete must clear.
var tagLinks = []tagLink{
	{table: "item_tags", column: "item_id", subject: "items"},
	{table: "asset_tags", column: "asset_id", subject: "assets"},
}

// CreateTag creates a tag. Names are unique regardless of case.
func CreateTag(ctx context.Context, db *sql.DB, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}
	if color == "" {
		color = model.DefaultTagColor
	}

	var tag *model.Tag
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := requireUniqueTagName(ctx, tx, name, 0); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name, color) VALUES (?, ?)`, name, color,
		)
		if err != nil {
			return fmt.Errorf("creating tag: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting tag id: %w", err)
		}

		tag = &model.Tag{ID: id, Name: name, Color: color}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTag returns a tag by ID, or nil if it doesn't exist.
func GetTag(ctx context.Context, q DBTX, id int64) (*model.Tag, error) {
	t := &model.Tag{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, color FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Color)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag: %w", err)
	}
	return t, nil
}

// ListTags returns all tags ordered by name.
func ListTags(ctx context.Context, q DBTX) ([]model.Tag, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// UpdateTag renames or recolors a tag.
func UpdateTag(ctx context.Context, db *sql.DB, id int64, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrInvalidInput)
	}
	if color == "" {
		color = model.DefaultTagColor
	}

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := requireUniqueTagName(ctx, tx, name, id); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE tags SET name = ?, color = ? WHERE id = ?`, name, color, id,
		)
		if err != nil {
			return fmt.Errorf("updating tag: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("tag %d: %w", id, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &model.Tag{ID: id, Name: name, Color: color}, nil
}

// DeleteTag deletes a tag and every association to it. Tagged items and
// assets are left untouched.
func DeleteTag(ctx context.Context, db *sql.DB, id int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM tags WHERE id = ?)`, id)
		if err != nil {
			return fmt.Errorf("checking tag: %w", err)
		}
		if !ok {
			return fmt.Errorf("tag %d: %w", id, model.ErrNotFound)
		}

		for _, l := range tagLinks {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+l.table+` WHERE tag_id = ?`, id); err != nil {
				return fmt.Errorf("detaching tag from %s: %w", l.subject, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting tag: %w", err)
		}
		return nil
	})
}

// AttachTag associates a tag with an item or asset. Attaching twice is a
// no-op.
func AttachTag(ctx context.Context, db *sql.DB, ref model.SubjectRef, tagID int64) error {
	l, err := tagLinkFor(ref.Kind)
	if err != nil {
		return err
	}

	return WithTx(ctx, db, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM `+l.subject+` WHERE id = ?)`, ref.ID)
		if err != nil {
			return fmt.Errorf("checking %s: %w", ref.Kind, err)
		}
		if !ok {
			return fmt.Errorf("%s %d: %w", ref.Kind, ref.ID, model.ErrNotFound)
		}

		ok, err = exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM tags WHERE id = ?)`, tagID)
		if err != nil {
			return fmt.Errorf("checking tag: %w", err)
		}
		if !ok {
			return fmt.Errorf("tag %d: %w", tagID, model.ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+l.table+` (`+l.column+`, tag_id) VALUES (?, ?)`,
			ref.ID, tagID,
		); err != nil {
			return fmt.Errorf("attaching tag: %w", err)
		}
		return nil
	})
}

// DetachTag removes a tag from an item or asset. Detaching a tag that is
// not attached is a no-op.
func DetachTag(ctx context.Context, db *sql.DB, ref model.SubjectRef, tagID int64) error {
	l, err := tagLinkFor(ref.Kind)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM `+l.table+` WHERE `+l.column+` = ? AND tag_id = ?`,
		ref.ID, tagID,
	)
	if err != nil {
		return fmt.Errorf("detaching tag: %w", err)
	}
	return nil
}

// TagsFor returns the tags attached to an item or asset, ordered by name.
func TagsFor(ctx context.Context, q DBTX, ref model.SubjectRef) ([]model.Tag, error) {
	l, err := tagLinkFor(ref.Kind)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.name, t.color FROM tags t
		 JOIN `+l.table+` l ON l.tag_id = t.id
		 WHERE l.`+l.column+` = ?
		 ORDER BY t.name COLLATE NOCASE`, ref.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing subject tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// TaggedSubjects returns every item and asset carrying the tag.
func TaggedSubjects(ctx context.Context, q DBTX, tagID int64) ([]model.SubjectRef, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT 'item', item_id FROM item_tags WHERE tag_id = ?
		 UNION ALL
		 SELECT 'asset', asset_id FROM asset_tags WHERE tag_id = ?
		 ORDER BY 1, 2`, tagID, tagID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tagged subjects: %w", err)
	}
	defer rows.Close()

	var refs []model.SubjectRef
	for rows.Next() {
		var ref model.SubjectRef
		if err := rows.Scan(&ref.Kind, &ref.ID); err != nil {
			return nil, fmt.Errorf("scanning tagged subject: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func requireUniqueTagName(ctx context.Context, q DBTX, name string, exceptID int64) error {
	taken, err := exists(ctx, q,
		`SELECT EXISTS (SELECT 1 FROM tags WHERE name = ? COLLATE NOCASE AND id != ?)`,
		name, exceptID,
	)
	if err != nil {
		return fmt.Errorf("checking tag name: %w", err)
	}
	if taken {
		return fmt.Errorf("tag %q: %w", name, model.ErrDuplicateTag)
	}
	return nil
}

func scanTags(rows *sql.Rows) ([]model.Tag, error) {
	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
