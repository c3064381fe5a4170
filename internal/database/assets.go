package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
)

// ErrAssetNotFound is returned when a lookup by path matches nothing.
var ErrAssetNotFound = errors.New("asset not found")

// LoadFingerprints returns the path -> fingerprint map for the whole
// catalog. The indexing pipeline uses it to skip unchanged files.
func (d *Database) LoadFingerprints(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT path, fingerprint FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints: %w", err)
	}
	defer rows.Close()

	fingerprints := make(map[string]string)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, err
		}
		fingerprints[path] = fp
	}
	return fingerprints, rows.Err()
}

// UpsertAssets writes a batch of assets in a single transaction. An
// existing row keeps its thumbnail only when the fingerprint is
// unchanged; a changed fingerprint clears it so the thumbnail pass
// regenerates it from the new content.
func (d *Database) UpsertAssets(ctx context.Context, batch []Asset) error {
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assets (path, fingerprint, size, captured_at, type, thumbnail)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT(path) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			size = excluded.size,
			captured_at = excluded.captured_at,
			type = excluded.type,
			thumbnail = CASE
				WHEN assets.fingerprint = excluded.fingerprint THEN assets.thumbnail
				ELSE NULL
			END`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range batch {
		if _, err := stmt.ExecContext(ctx, a.Path, a.Fingerprint, a.Size,
			a.CapturedAt.Unix(), string(a.Type)); err != nil {
			return fmt.Errorf("upserting %s: %w", a.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert batch: %w", err)
	}

	metrics.DBBatchFlushes.Inc()
	metrics.DBBatchFlushDuration.Observe(time.Since(start).Seconds())
	return nil
}

// RemoveAssetsNotIn deletes every asset whose path is absent from keep
// and returns how many rows were removed. Tag links cascade.
func (d *Database) RemoveAssetsNotIn(ctx context.Context, keep map[string]struct{}) (int64, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT path FROM assets`)
	if err != nil {
		return 0, fmt.Errorf("listing assets for cleanup: %w", err)
	}

	var orphans []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := keep[path]; !ok {
			orphans = append(orphans, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(orphans) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning cleanup transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM assets WHERE path = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, path := range orphans {
		if _, err := stmt.ExecContext(ctx, path); err != nil {
			return 0, fmt.Errorf("removing %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing cleanup: %w", err)
	}

	return int64(len(orphans)), nil
}

// AssetsMissingThumbnail returns the paths of images and videos without
// a stored thumbnail. Icons are excluded: they are not worth rendering.
func (d *Database) AssetsMissingThumbnail(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT path FROM assets
		WHERE thumbnail IS NULL AND (type = ? OR type = ?)
		ORDER BY captured_at DESC`,
		string(mediatypes.AssetTypeImage), string(mediatypes.AssetTypeVideo))
	if err != nil {
		return nil, fmt.Errorf("listing assets missing thumbnails: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// UpdateThumbnail stores thumbnail bytes for one asset.
func (d *Database) UpdateThumbnail(ctx context.Context, path string, data []byte) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE assets SET thumbnail = ? WHERE path = ?`, data, path)
	if err != nil {
		return fmt.Errorf("updating thumbnail for %s: %w", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// Thumbnail returns the stored thumbnail bytes for one asset, or
// ErrAssetNotFound. A nil slice with no error means the asset exists
// but has no thumbnail yet.
func (d *Database) Thumbnail(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT thumbnail FROM assets WHERE path = ?`, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ResetThumbnails clears every stored thumbnail and returns how many
// rows were affected.
func (d *Database) ResetThumbnails(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `UPDATE assets SET thumbnail = NULL WHERE thumbnail IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("resetting thumbnails: %w", err)
	}
	return res.RowsAffected()
}

// AssetByPath loads one asset including its thumbnail.
func (d *Database) AssetByPath(ctx context.Context, path string) (*Asset, error) {
	var (
		a          Asset
		capturedAt int64
		kind       string
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT path, fingerprint, size, captured_at, type, thumbnail
		FROM assets WHERE path = ?`, path).
		Scan(&a.Path, &a.Fingerprint, &a.Size, &capturedAt, &kind, &a.Thumbnail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CapturedAt = time.Unix(capturedAt, 0)
	a.Type = mediatypes.AssetType(kind)
	return &a, nil
}

// CountByType returns how many assets of each type are indexed.
func (d *Database) CountByType(ctx context.Context) (map[mediatypes.AssetType]int64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM assets GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[mediatypes.AssetType]int64)
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[mediatypes.AssetType(kind)] = count
	}
	return counts, rows.Err()
}
