// Package sink persists deduplicated contract records. The output is an
// append-only CSV whose column schema and date format are a compatibility
// contract with the downstream dashboard; the core never mutates either.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/noahcordero1/multi-subsidiary-scraper/models"
)

// Columns is the fixed output schema, in order.
var Columns = []string{
	"description",
	"supplier_name",
	"cpv_category",
	"bidder_count",
	"contract_value",
	"last_updated",
	"subsidiary_id",
}

// CSVWriter appends record batches to a CSV file. Prior content is never
// rewritten, so every successfully flushed batch survives later failures.
type CSVWriter struct {
	path string
	file *os.File
	w    *csv.Writer
}

// OpenCSV opens (or creates) the dataset file for appending. The header
// row is written only when the file is new or empty.
func OpenCSV(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, models.NewCrawlError(models.ErrCodePersistence, "create output directory", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodePersistence, "open output file", err)
	}

	cw := &CSVWriter{path: path, file: file, w: csv.NewWriter(file)}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, models.NewCrawlError(models.ErrCodePersistence, "stat output file", err)
	}
	if info.Size() == 0 {
		if err := cw.writeRows([][]string{Columns}); err != nil {
			file.Close()
			return nil, err
		}
	}

	return cw, nil
}

// Flush appends one batch of records and syncs the file, so a crash after
// Flush returns cannot lose the batch.
func (c *CSVWriter) Flush(records []models.ContractRecord) error {
	rows := make([][]string, 0, len(records))
	for i := range records {
		rows = append(rows, recordRow(&records[i]))
	}
	return c.writeRows(rows)
}

func (c *CSVWriter) writeRows(rows [][]string) error {
	for _, row := range rows {
		if err := c.w.Write(row); err != nil {
			return models.NewCrawlError(models.ErrCodePersistence, "write csv row", err)
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return models.NewCrawlError(models.ErrCodePersistence, "flush csv buffer", err)
	}
	if err := c.file.Sync(); err != nil {
		return models.NewCrawlError(models.ErrCodePersistence, "sync output file", err)
	}
	return nil
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}

func recordRow(r *models.ContractRecord) []string {
	bidders := ""
	if r.HasBidderCount() {
		bidders = strconv.Itoa(r.BidderCount)
	}
	return []string{
		r.Description,
		r.SupplierName,
		r.CPVCategory,
		bidders,
		r.ValueString(),
		r.DateString(),
		r.SubsidiaryID,
	}
}

// LoadKeys re-derives the dedup keys of all records already persisted at
// path. A missing file yields an empty set: the run is simply not
// incremental. Used so a re-invocation after a halt skips records that
// are already durable.
func LoadKeys(path string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keys, nil
		}
		return nil, models.NewCrawlError(models.ErrCodePersistence, "open existing dataset", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		return nil, models.NewCrawlError(models.ErrCodePersistence, "read dataset header", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"description", "supplier_name", "subsidiary_id"} {
		if _, ok := idx[required]; !ok {
			return nil, models.NewCrawlError(
				models.ErrCodePersistence,
				fmt.Sprintf("existing dataset lacks %q column", required),
				nil,
			)
		}
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewCrawlError(models.ErrCodePersistence, "read dataset row", err)
		}

		rec := models.ContractRecord{
			Description:   field(row, "description"),
			SupplierName:  field(row, "supplier_name"),
			SubsidiaryID:  field(row, "subsidiary_id"),
			BidderCount:   models.UnknownBidderCount,
			ContractValue: models.UnknownValue,
		}
		if v := field(row, "contract_value"); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				rec.ContractValue = parsed
			}
		}
		if d := field(row, "last_updated"); d != "" {
			if parsed, err := time.Parse(models.DateFormat, d); err == nil {
				rec.LastUpdated = parsed
			}
		}

		keys[rec.DedupKey()] = struct{}{}
	}

	return keys, nil
}
