package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetOrCreateTag returns the tag with the given display value, creating
// it if necessary. Uniqueness is on the lowercased value.
func (d *Database) GetOrCreateTag(ctx context.Context, display string, kind TagKind) (*Tag, error) {
	value := strings.ToLower(strings.TrimSpace(display))
	if value == "" {
		return nil, errors.New("empty tag value")
	}

	tag := &Tag{Value: value, Display: display, Kind: kind}

	err := d.db.QueryRowContext(ctx,
		`SELECT id, display, kind FROM tags WHERE value = ?`, value).
		Scan(&tag.ID, &tag.Display, (*string)(&tag.Kind))
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up tag %q: %w", value, err)
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT INTO tags (value, display, kind) VALUES (?, ?, ?)`,
		value, display, string(kind))
	if err != nil {
		return nil, fmt.Errorf("creating tag %q: %w", value, err)
	}
	tag.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// LinkAssetTag attaches a tag to an asset with a confidence score.
// Re-linking an existing pair is a no-op.
func (d *Database) LinkAssetTag(ctx context.Context, assetPath string, tagID int64, confidence float64) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO asset_tags (asset_path, tag_id, confidence) VALUES (?, ?, ?)`,
		assetPath, tagID, confidence)
	if err != nil {
		return fmt.Errorf("linking tag %d to %s: %w", tagID, assetPath, err)
	}
	return nil
}

// TagsForAsset lists the tags attached to one asset.
func (d *Database) TagsForAsset(ctx context.Context, assetPath string) ([]Tag, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.value, t.display, t.kind
		FROM tags t
		JOIN asset_tags at ON at.tag_id = t.id
		WHERE at.asset_path = ?
		ORDER BY t.value`, assetPath)
	if err != nil {
		return nil, fmt.Errorf("listing tags for %s: %w", assetPath, err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Value, &t.Display, (*string)(&t.Kind)); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
