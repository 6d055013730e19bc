package excel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crestline-am/docintake/internal/core/domain"
	"github.com/crestline-am/docintake/internal/core/ports"
)

const assetsSheet = "Assets"

// Importer loads the asset registry from an operations-maintained workbook.
// The Assets sheet carries one row per asset: id, deal name, full name,
// category, folder path, and a semicolon-separated alias list.
type Importer struct {
	registry ports.AssetRegistry
	logger   *slog.Logger
}

func NewImporter(registry ports.AssetRegistry, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{registry: registry, logger: logger}
}

func (i *Importer) ImportWorkbook(ctx context.Context, r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "excel.import", err)
	}
	defer f.Close()

	rows, err := f.GetRows(assetsSheet)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "excel.import",
			fmt.Errorf("read sheet %q: %w", assetsSheet, err))
	}
	if len(rows) < 2 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "excel.import",
			errors.New("workbook has no asset rows"))
	}

	now := time.Now().UTC()
	assets := make([]domain.Asset, 0, len(rows)-1)
	for idx, row := range rows[1:] {
		asset, err := parseRow(row, now)
		if err != nil {
			// Row numbers are 1-based and include the header.
			return 0, domain.WrapError(domain.ErrInvalidInput, "excel.import",
				fmt.Errorf("row %d: %w", idx+2, err))
		}
		if asset == nil {
			continue
		}
		assets = append(assets, *asset)
	}
	if len(assets) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "excel.import",
			errors.New("workbook has no asset rows"))
	}

	if err := i.registry.UpsertAssets(ctx, assets); err != nil {
		return 0, fmt.Errorf("upsert assets: %w", err)
	}
	i.logger.Info("asset registry imported", "assets", len(assets))
	return len(assets), nil
}

func parseRow(row []string, now time.Time) (*domain.Asset, error) {
	cell := func(n int) string {
		if n >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[n])
	}

	id := cell(0)
	dealName := cell(1)
	if id == "" && dealName == "" {
		return nil, nil // blank padding row
	}
	if id == "" {
		return nil, errors.New("missing asset id")
	}
	if dealName == "" {
		return nil, errors.New("missing deal name")
	}

	category := domain.AssetCategory(strings.ToLower(cell(3)))
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", cell(3))
	}
	folderPath := cell(4)
	if folderPath == "" {
		return nil, errors.New("missing folder path")
	}

	var aliases []string
	for _, alias := range strings.Split(cell(5), ";") {
		if alias = strings.TrimSpace(alias); alias != "" {
			aliases = append(aliases, alias)
		}
	}

	return &domain.Asset{
		ID:         id,
		DealName:   dealName,
		FullName:   cell(2),
		Category:   category,
		FolderPath: folderPath,
		Aliases:    aliases,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
