package rootfs

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironclaw/runtime/internal/errx"
)

// Asset is a catalog entry for a rootfs image imported from an OCI
// reference: where the extracted image lives on the local disk, the
// digest it was imported from, and when it was imported.
type Asset struct {
	Tag        string
	Digest     string
	RootfsPath string
	ImportedAt time.Time
}

// Catalog is the local sqlite-backed record of imported rootfs assets,
// keyed by tag.
type Catalog struct {
	db *sql.DB
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS assets (
  tag TEXT PRIMARY KEY,
  digest TEXT NOT NULL,
  rootfs_path TEXT NOT NULL,
  imported_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_digest ON assets(digest);
`

// OpenCatalog opens (creating if necessary) the sqlite catalog at path and
// applies its schema. The schema is two idempotent CREATE ... IF NOT EXISTS
// statements (the table and its digest index) rather than a versioned
// migration chain: the catalog has one table and no history of prior
// shapes to migrate from.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errx.Wrap(ErrCatalogOpen, err)
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, errx.Wrap(ErrCatalogOpen, err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the catalog's underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put inserts or replaces the catalog entry for asset.Tag.
func (c *Catalog) Put(asset Asset) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO assets(tag, digest, rootfs_path, imported_at) VALUES (?, ?, ?, ?)`,
		asset.Tag, asset.Digest, asset.RootfsPath, asset.ImportedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errx.Wrap(ErrCatalogQuery, err)
	}
	return nil
}

// Get looks up the catalog entry for tag.
func (c *Catalog) Get(tag string) (*Asset, error) {
	row := c.db.QueryRow(`SELECT tag, digest, rootfs_path, imported_at FROM assets WHERE tag = ?`, tag)

	var asset Asset
	var importedAt string
	if err := row.Scan(&asset.Tag, &asset.Digest, &asset.RootfsPath, &importedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAssetNotFound
		}
		return nil, errx.Wrap(ErrCatalogQuery, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, importedAt)
	if err != nil {
		return nil, errx.Wrap(ErrCatalogQuery, err)
	}
	asset.ImportedAt = ts
	return &asset, nil
}

// Delete removes the catalog entry for tag, if present.
func (c *Catalog) Delete(tag string) error {
	if _, err := c.db.Exec(`DELETE FROM assets WHERE tag = ?`, tag); err != nil {
		return errx.Wrap(ErrCatalogQuery, err)
	}
	return nil
}

// List returns every catalog entry, ordered by most recently imported.
func (c *Catalog) List() ([]Asset, error) {
	rows, err := c.db.Query(`SELECT tag, digest, rootfs_path, imported_at FROM assets ORDER BY imported_at DESC`)
	if err != nil {
		return nil, errx.Wrap(ErrCatalogQuery, err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var asset Asset
		var importedAt string
		if err := rows.Scan(&asset.Tag, &asset.Digest, &asset.RootfsPath, &importedAt); err != nil {
			return nil, errx.Wrap(ErrCatalogQuery, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, importedAt)
		if err != nil {
			return nil, errx.Wrap(ErrCatalogQuery, err)
		}
		asset.ImportedAt = ts
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.Wrap(ErrCatalogQuery, err)
	}
	return assets, nil
}
