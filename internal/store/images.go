package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

func subjectTable(kind string) (string, error) {
	switch kind {
	case model.SubjectItem:
		return "items", nil
	case model.SubjectAsset:
		return "assets", nil
	}
	return "", fmt.Errorf("%w: subject kind %q", model.ErrInvalidInput, kind)
}

// SetImage stores a photo for an item or asset, replacing any previous one.
func SetImage(ctx context.Context, db *sql.DB, ref model.SubjectRef, image []byte, mime string) error {
	table, err := subjectTable(ref.Kind)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE `+table+` SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, now(), ref.ID,
	)
	if err != nil {
		return fmt.Errorf("setting %s image: %w", ref.Kind, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %d: %w", ref.Kind, ref.ID, model.ErrNotFound)
	}
	return nil
}

// GetImage returns the stored photo and its MIME type. A subject without a
// photo returns nil data and no error.
func GetImage(ctx context.Context, q DBTX, ref model.SubjectRef) ([]byte, string, error) {
	table, err := subjectTable(ref.Kind)
	if err != nil {
		return nil, "", err
	}

	var data []byte
	var mime sql.NullString
	err = q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM `+table+` WHERE id = ?`, ref.ID,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("%s %d: %w", ref.Kind, ref.ID, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting %s image: %w", ref.Kind, err)
	}
	return data, mime.String, nil
}
