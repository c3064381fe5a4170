package database

import (
	"context"
	"fmt"
)

// Rescan flags stored in the metadata table. Each one requests a
// corresponding maintenance pass on the next run.
const (
	FlagScanRequired          = "scan_required"
	FlagThumbnailScanRequired = "thumbnail_scan_required"
	FlagTagScanRequired       = "tag_scan_required"
)

var validFlags = map[string]bool{
	FlagScanRequired:          true,
	FlagThumbnailScanRequired: true,
	FlagTagScanRequired:       true,
}

// Flag reads one rescan flag.
func (d *Database) Flag(ctx context.Context, name string) (bool, error) {
	if !validFlags[name] {
		return false, fmt.Errorf("unknown metadata flag %q", name)
	}
	var set bool
	// Flag names are constrained to the known set above.
	query := fmt.Sprintf(`SELECT %s FROM metadata WHERE version = ?`, name)
	if err := d.db.QueryRowContext(ctx, query, schemaVersion).Scan(&set); err != nil {
		return false, fmt.Errorf("reading flag %s: %w", name, err)
	}
	return set, nil
}

// SetFlag writes one rescan flag.
func (d *Database) SetFlag(ctx context.Context, name string, value bool) error {
	if !validFlags[name] {
		return fmt.Errorf("unknown metadata flag %q", name)
	}
	query := fmt.Sprintf(`UPDATE metadata SET %s = ? WHERE version = ?`, name)
	if _, err := d.db.ExecContext(ctx, query, value, schemaVersion); err != nil {
		return fmt.Errorf("setting flag %s: %w", name, err)
	}
	return nil
}
