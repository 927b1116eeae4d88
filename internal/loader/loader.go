// Package loader ingests the five CSV collections into a store, reconciles
// order totals and produces the integrity report.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shopdata/internal/dataset"
	"github.com/Skotchmaster/shopdata/internal/models"
	"github.com/Skotchmaster/shopdata/internal/store"
)

// Fatal input errors. Any of them aborts the whole run.
var (
	ErrMissingInput    = errors.New("missing input")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrMalformedRecord = errors.New("malformed record")
)

type Loader struct {
	Store *store.Store
	Log   *slog.Logger
}

// LoadDir loads every table from dir in dependency order. Foreign-key
// enforcement stays relaxed afterwards so the report can count violations;
// callers switch it back on.
func (l *Loader) LoadDir(ctx context.Context, dir string) error {
	if err := l.Store.SetForeignKeys(ctx, false); err != nil {
		return err
	}
	for _, t := range store.Tables {
		path := filepath.Join(dir, dataset.FileName(t.Name))
		n, err := l.LoadFile(ctx, t, path)
		if err != nil {
			return err
		}
		l.Log.Info("table_loaded", "table", t.Name, "rows", n, "source", path)
	}
	return nil
}

func (l *Loader) LoadFile(ctx context.Context, t store.Table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return l.LoadTable(ctx, t, f, path)
}

// LoadTable validates the header of r against t, decodes every record into
// t's model and inserts them in batches inside one transaction. Nothing is
// written unless the header matches exactly and every record decodes.
func (l *Loader) LoadTable(ctx context.Context, t store.Table, r io.Reader, source string) (int, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: %s has no header row", ErrMalformedRecord, source)
		}
		return 0, fmt.Errorf("%w: %s header: %v", ErrMalformedRecord, source, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	at, err := matchColumns(t, header)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", source, err)
	}

	rr := &recordReader{cr: cr, at: at, source: source}
	rows := 0
	err = l.Store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch t.Name {
		case models.TableCustomers:
			rows, err = insertAll(tx, rr, decodeCustomer)
		case models.TableProducts:
			rows, err = insertAll(tx, rr, decodeProduct)
		case models.TableOrders:
			rows, err = insertAll(tx, rr, decodeOrder)
		case models.TableOrderItems:
			rows, err = insertAll(tx, rr, decodeOrderItem)
		case models.TableReviews:
			rows, err = insertAll(tx, rr, decodeReview)
		default:
			err = fmt.Errorf("no decoder for table %s", t.Name)
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", t.Name, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// matchColumns requires header to hold exactly t's columns, in any order,
// and returns where each column sits in a record.
func matchColumns(t store.Table, header []string) (map[string]int, error) {
	at := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := at[h]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrSchemaMismatch, h)
		}
		at[h] = i
	}

	var missing []string
	for _, c := range t.Columns {
		if _, ok := at[c]; !ok {
			missing = append(missing, c)
		}
	}

	want := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		want[c] = true
	}
	var extra []string
	for h := range at {
		if !want[h] {
			extra = append(extra, h)
		}
	}
	sort.Strings(extra)

	switch {
	case len(missing) > 0 && len(extra) > 0:
		return nil, fmt.Errorf("%w: missing columns %v, extra columns %v", ErrSchemaMismatch, missing, extra)
	case len(missing) > 0:
		return nil, fmt.Errorf("%w: missing columns %v", ErrSchemaMismatch, missing)
	case len(extra) > 0:
		return nil, fmt.Errorf("%w: extra columns %v", ErrSchemaMismatch, extra)
	}
	return at, nil
}
