// Package importer bulk-registers sources from Excel spreadsheets.
package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/models"
	"github.com/jonesrussell/goingest/internal/repository"
)

// Column indices for the import spreadsheet (0-based).
const (
	colOrganization = 0 // Column A
	colName         = 1 // Column B
	colURL          = 2 // Column C
	colSourceType   = 3 // Column D
	colFrequency    = 4 // Column E
	colActive       = 5 // Column F

	headerRowIndex = 1 // Excel rows are 1-based, header is row 1
)

// SourceRow represents a parsed row from the import spreadsheet.
type SourceRow struct {
	Row                   int // Excel row number (for error reporting)
	Organization          string
	Name                  string
	URL                   string
	SourceType            string
	CrawlFrequencyMinutes int
	Active                bool
}

// ImportError represents a failure for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Result summarizes one import run. Row failures never abort the run.
type Result struct {
	Created  int           `json:"created"`
	Existing int           `json:"existing"`
	Errors   []ImportError `json:"errors"`
}

// SourceRegistry is the find-or-create surface the importer registers rows against.
type SourceRegistry interface {
	FindOrCreate(ctx context.Context, org, url string, attrs repository.SourceAttrs) (*models.Source, bool, error)
}

// Importer registers sources parsed from spreadsheets.
type Importer struct {
	registry SourceRegistry
	logger   logger.Logger
}

// New creates an importer over the given registry.
func New(registry SourceRegistry, log logger.Logger) *Importer {
	return &Importer{
		registry: registry,
		logger:   log,
	}
}

// ImportFile imports sources from an xlsx file on disk.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	return i.importSheet(ctx, f)
}

// Import imports sources from an xlsx stream.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	return i.importSheet(ctx, f)
}

func (i *Importer) importSheet(ctx context.Context, f *excelize.File) (*Result, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	result := &Result{Errors: []ImportError{}}
	for idx, cells := range rows {
		rowNum := idx + 1
		if rowNum == headerRowIndex {
			continue
		}
		if isEmptyRow(cells) {
			continue
		}

		row, parseErr := parseRow(rowNum, cells)
		if parseErr == "" {
			parseErr = ValidateRow(row)
		}
		if parseErr != "" {
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Error: parseErr})
			continue
		}

		_, created, err := i.registry.FindOrCreate(ctx, row.Organization, row.URL, repository.SourceAttrs{
			Name:                  row.Name,
			SourceType:            models.SourceType(row.SourceType),
			CrawlFrequencyMinutes: row.CrawlFrequencyMinutes,
			IsActive:              row.Active,
		})
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Error: err.Error()})
			continue
		}

		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}

	i.logger.Info("Source import finished",
		logger.Int("created", result.Created),
		logger.Int("existing", result.Existing),
		logger.Int("errors", len(result.Errors)),
	)

	return result, nil
}

func parseRow(rowNum int, cells []string) (SourceRow, string) {
	row := SourceRow{Row: rowNum}

	cell := func(idx int) string {
		if idx < len(cells) {
			return strings.TrimSpace(cells[idx])
		}
		return ""
	}

	row.Organization = cell(colOrganization)
	row.Name = cell(colName)
	row.URL = cell(colURL)
	row.SourceType = cell(colSourceType)

	if raw := cell(colFrequency); raw != "" {
		freq, err := strconv.Atoi(raw)
		if err != nil {
			return row, "crawl_frequency_minutes must be a number"
		}
		row.CrawlFrequencyMinutes = freq
	}

	row.Active = parseBool(cell(colActive))

	return row, ""
}

// ValidateRow validates a single row and returns an error message or empty string.
func ValidateRow(row SourceRow) string {
	if row.Organization == "" {
		return "organization is required"
	}
	if row.URL == "" {
		return "url is required"
	}
	if !strings.HasPrefix(row.URL, "http://") && !strings.HasPrefix(row.URL, "https://") {
		return "url must start with http:// or https://"
	}
	if row.SourceType != "" && !models.SourceType(row.SourceType).Valid() {
		return "unknown source_type: " + row.SourceType
	}
	if row.CrawlFrequencyMinutes != 0 && !models.ValidCrawlFrequency(row.CrawlFrequencyMinutes) {
		return "invalid crawl_frequency_minutes: " + strconv.Itoa(row.CrawlFrequencyMinutes)
	}
	return ""
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
