package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// AssetRepository reads the known-asset registry. Writes happen only through
// the workbook import path.
type AssetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, deal_name, full_name, category, folder_path, aliases, created_at, updated_at
FROM assets
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

func (r *AssetRepository) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, deal_name, full_name, category, folder_path, aliases, created_at, updated_at
FROM assets
WHERE id = $1
`, id)

	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get asset", err)
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return asset, nil
}

func (r *AssetRepository) UpsertAssets(ctx context.Context, assets []domain.Asset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assets tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, a := range assets {
		aliasesJSON, err := json.Marshal(a.Aliases)
		if err != nil {
			return fmt.Errorf("marshal aliases for %s: %w", a.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO assets (id, deal_name, full_name, category, folder_path, aliases, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
ON CONFLICT (id) DO UPDATE SET
	deal_name = EXCLUDED.deal_name,
	full_name = EXCLUDED.full_name,
	category = EXCLUDED.category,
	folder_path = EXCLUDED.folder_path,
	aliases = EXCLUDED.aliases,
	updated_at = EXCLUDED.updated_at
`, a.ID, a.DealName, a.FullName, string(a.Category), a.FolderPath, aliasesJSON, now); err != nil {
			return fmt.Errorf("upsert asset %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assets tx: %w", err)
	}
	return nil
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	var aliasesRaw []byte
	var category string

	err := row.Scan(&a.ID, &a.DealName, &a.FullName, &category, &a.FolderPath, &aliasesRaw, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(aliasesRaw, &a.Aliases); err != nil {
		return nil, fmt.Errorf("unmarshal aliases: %w", err)
	}
	a.Category = domain.AssetCategory(category)
	return &a, nil
}
