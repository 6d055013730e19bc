package excel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/crestline-am/docintake/internal/core/domain"
)

type registryFake struct {
	upserted []domain.Asset
	err      error
}

func (r *registryFake) ListAssets(context.Context) ([]domain.Asset, error) { return nil, nil }
func (r *registryFake) GetAsset(context.Context, string) (*domain.Asset, error) {
	return nil, domain.WrapError(domain.ErrNotFound, "fake", errors.New("not found"))
}
func (r *registryFake) UpsertAssets(_ context.Context, assets []domain.Asset) error {
	if r.err != nil {
		return r.err
	}
	r.upserted = append(r.upserted, assets...)
	return nil
}

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", assetsSheet); err != nil {
		t.Fatalf("SetSheetName() error = %v", err)
	}
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName() error = %v", err)
			}
			if err := f.SetCellValue(assetsSheet, cell, val); err != nil {
				t.Fatalf("SetCellValue() error = %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf
}

var header = []string{"ID", "Deal Name", "Full Name", "Category", "Folder Path", "Aliases"}

func TestImportWorkbookUpsertsRows(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		header,
		{"asset-1", "Alpha Credit", "Alpha Credit Fund III", "private_credit", "/assets/alpha-credit", "ACF III; Alpha Fund"},
		{"asset-2", "Meridian Energy", "Meridian Energy Fund", "infrastructure", "/assets/meridian", ""},
	})

	registry := &registryFake{}
	n, err := NewImporter(registry, nil).ImportWorkbook(context.Background(), buf)
	if err != nil {
		t.Fatalf("ImportWorkbook() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d assets, want 2", n)
	}
	if len(registry.upserted) != 2 {
		t.Fatalf("upserted %d assets, want 2", len(registry.upserted))
	}

	first := registry.upserted[0]
	if first.ID != "asset-1" || first.Category != domain.CategoryPrivateCredit {
		t.Fatalf("first asset = %+v", first)
	}
	if len(first.Aliases) != 2 || first.Aliases[0] != "ACF III" || first.Aliases[1] != "Alpha Fund" {
		t.Fatalf("aliases = %v, want trimmed semicolon split", first.Aliases)
	}
	if registry.upserted[1].Aliases != nil {
		t.Fatalf("second asset aliases = %v, want none", registry.upserted[1].Aliases)
	}
}

func TestImportWorkbookSkipsBlankRows(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		header,
		{"asset-1", "Alpha Credit", "", "private_credit", "/assets/alpha-credit", ""},
		{"", "", "", "", "", ""},
	})

	registry := &registryFake{}
	n, err := NewImporter(registry, nil).ImportWorkbook(context.Background(), buf)
	if err != nil {
		t.Fatalf("ImportWorkbook() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("imported %d assets, want 1", n)
	}
}

func TestImportWorkbookRejectsUnknownCategory(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		header,
		{"asset-1", "Alpha Credit", "", "hedge_fund", "/assets/alpha-credit", ""},
	})

	_, err := NewImporter(&registryFake{}, nil).ImportWorkbook(context.Background(), buf)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("ImportWorkbook() error = %v, want invalid-input kind", err)
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("error %q should name the offending row", err)
	}
}

func TestImportWorkbookRejectsMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	_, err = NewImporter(&registryFake{}, nil).ImportWorkbook(context.Background(), buf)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("ImportWorkbook() error = %v, want invalid-input kind", err)
	}
}

func TestImportWorkbookRejectsEmptyWorkbook(t *testing.T) {
	buf := buildWorkbook(t, [][]string{header})

	_, err := NewImporter(&registryFake{}, nil).ImportWorkbook(context.Background(), buf)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("ImportWorkbook() error = %v, want invalid-input kind", err)
	}
}

func TestImportWorkbookPropagatesUpsertFailure(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		header,
		{"asset-1", "Alpha Credit", "", "private_credit", "/assets/alpha-credit", ""},
	})

	registry := &registryFake{err: fmt.Errorf("db down")}
	_, err := NewImporter(registry, nil).ImportWorkbook(context.Background(), buf)
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("ImportWorkbook() error = %v, want upsert failure", err)
	}
}
