// Package importer loads company names from spreadsheet files and runs the
// lookup pipeline over them with bounded concurrency.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/internal/store"
)

// Lookup is the part of the pipeline the importer needs.
type Lookup interface {
	SearchCompanyInfo(ctx context.Context, companyName string) model.CompanyRecord
}

const defaultMaxConcurrent = 3

// Importer reads company lists and enriches each name through the pipeline.
type Importer struct {
	store         store.Store
	lookup        Lookup
	maxConcurrent int
}

// Option configures an Importer.
type Option func(*Importer)

// WithMaxConcurrent bounds the number of simultaneous lookups.
func WithMaxConcurrent(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.maxConcurrent = n
		}
	}
}

// New creates an Importer.
func New(st store.Store, lookup Lookup, opts ...Option) *Importer {
	im := &Importer{
		store:         st,
		lookup:        lookup,
		maxConcurrent: defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Summary reports the outcome of one import run.
type Summary struct {
	RunID     string                `json:"run_id"`
	Processed int                   `json:"processed"`
	Found     int                   `json:"found"`
	Skipped   int                   `json:"skipped"`
	Companies []model.CompanyRecord `json:"companies"`
}

// ImportFile reads company names from an XLSX or CSV file, skips names
// already present in the store, and looks up the rest. Rows with an empty
// first cell are ignored; duplicates within the file are collapsed.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Summary, error) {
	names, err := ReadNames(path)
	if err != nil {
		return nil, err
	}
	return im.importNames(ctx, names)
}

// ImportReader is ImportFile for an already-open stream. The format is taken
// from the filename extension.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader, filename string) (*Summary, error) {
	var names []string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		names, err = readCSVNames(r)
	case ".xlsx":
		names, err = readXLSXStream(r)
	default:
		return nil, eris.Errorf("importer: unsupported file type %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	return im.importNames(ctx, names)
}

func (im *Importer) importNames(ctx context.Context, names []string) (*Summary, error) {
	summary := &Summary{RunID: uuid.New().String()}
	zap.L().Info("importer: run started",
		zap.String("run_id", summary.RunID),
		zap.Int("names", len(names)))

	var pending []string
	for _, name := range names {
		existing, err := im.store.GetCompanyByName(ctx, name)
		if err != nil {
			return nil, eris.Wrap(err, "importer: check existing")
		}
		if existing != nil {
			summary.Skipped++
			zap.L().Debug("importer: company already known, skipping",
				zap.String("company", name))
			continue
		}
		pending = append(pending, name)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(im.maxConcurrent)

	var mu sync.Mutex
	for _, name := range pending {
		g.Go(func() error {
			record := im.lookup.SearchCompanyInfo(gCtx, name)
			saved, err := im.store.UpsertCompany(gCtx, record)
			if err != nil {
				return eris.Wrapf(err, "importer: save %s", name)
			}
			saved.Provenance = record.Provenance

			mu.Lock()
			summary.Processed++
			if record.Provenance == model.ProvenanceFound {
				summary.Found++
			}
			summary.Companies = append(summary.Companies, *saved)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Processed += summary.Skipped
	zap.L().Info("importer: run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("processed", summary.Processed),
		zap.Int("found", summary.Found),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// ReadNames extracts a deduplicated list of company names from the first
// column of an XLSX or CSV file.
func ReadNames(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "importer: open csv")
		}
		defer f.Close()
		return readCSVNames(f)
	case ".xlsx":
		return readXLSXNames(path)
	default:
		return nil, eris.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
}

func readXLSXNames(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}
	return namesFromSheets(f)
}

func readXLSXStream(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read xlsx stream")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "importer: parse xlsx")
	}
	return namesFromSheets(f)
}

func namesFromSheets(f *xlsx.File) ([]string, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}
	var names []string
	seen := make(map[string]struct{})
	for _, row := range f.Sheets[0].Rows {
		if len(row.Cells) == 0 {
			continue
		}
		appendName(&names, seen, row.Cells[0].String())
	}
	return names, nil
}

func readCSVNames(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var names []string
	seen := make(map[string]struct{})
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "importer: read csv")
		}
		if len(record) == 0 {
			continue
		}
		appendName(&names, seen, record[0])
	}
	return names, nil
}

func appendName(names *[]string, seen map[string]struct{}, raw string) {
	name := model.NormalizeName(raw)
	if name == "" {
		return
	}
	// A header row that literally says "name" (or its Russian equivalent) is
	// not a company.
	switch strings.ToLower(name) {
	case "name", "company", "компания", "название", "наименование":
		return
	}
	if _, ok := seen[name]; ok {
		return
	}
	seen[name] = struct{}{}
	*names = append(*names, name)
}
