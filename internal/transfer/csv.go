// Package transfer moves contacts in and out of the service in bulk: CSV
// uploads in, XLSX workbooks out.
package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hugh/contact-keeper/internal/api/validation"
	"github.com/hugh/contact-keeper/internal/contacts"
)

// MaxImportRows bounds how many contacts one upload may carry.
const MaxImportRows = 10000

var (
	ErrEmptyFile      = errors.New("csv file is empty")
	ErrMissingColumns = errors.New("csv header must include name and email columns")
	ErrNoRows         = errors.New("csv file contains no contacts")
	ErrTooManyRows    = fmt.Errorf("csv file exceeds %d contacts", MaxImportRows)
)

// RowError rejects a data row before anything is written. Line is the 1-based
// line number in the uploaded file.
type RowError struct {
	Line    int
	Field   string
	Message string
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
}

var csvColumns = []string{"name", "email", "phone", "address", "timezone"}

// ParseCSV reads a header row followed by contact rows. Header names are
// matched case-insensitively and unknown columns are ignored.
func ParseCSV(r io.Reader) ([]contacts.Fields, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	index := headerIndex(header)
	if _, ok := index["name"]; !ok {
		return nil, ErrMissingColumns
	}
	if _, ok := index["email"]; !ok {
		return nil, ErrMissingColumns
	}

	var rows []contacts.Fields
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &RowError{Line: parseErr.Line, Message: parseErr.Err.Error()}
			}
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		if len(rows) == MaxImportRows {
			return nil, ErrTooManyRows
		}

		f := rowFields(record, index)
		if errs := validation.Contact(f.Name, f.Email, f.Phone, f.Address, f.Timezone); len(errs) > 0 {
			return nil, &RowError{Line: line, Field: errs[0].Field, Message: errs[0].Message}
		}
		rows = append(rows, f)
	}

	return rows, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(csvColumns))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		for _, col := range csvColumns {
			if name == col {
				if _, seen := index[col]; !seen {
					index[col] = i
				}
			}
		}
	}
	return index
}

func rowFields(record []string, index map[string]int) contacts.Fields {
	value := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	optional := func(col string) *string {
		v := value(col)
		return validation.OptionalString(&v)
	}

	return contacts.Fields{
		Name:     strings.TrimSpace(validation.SanitizeString(value("name"))),
		Email:    strings.TrimSpace(value("email")),
		Phone:    optional("phone"),
		Address:  optional("address"),
		Timezone: optional("timezone"),
	}
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Importer stores a parsed CSV upload as one atomic batch.
type Importer struct {
	contacts *contacts.Service
	logger   *slog.Logger
}

func NewImporter(svc *contacts.Service, logger *slog.Logger) *Importer {
	return &Importer{contacts: svc, logger: logger}
}

// Import returns the number of stored contacts. On any error nothing is stored.
func (i *Importer) Import(ctx context.Context, ownerID uint, r io.Reader) (int, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrNoRows
	}

	created, err := i.contacts.CreateBatch(ctx, ownerID, rows)
	if err != nil {
		return 0, err
	}

	i.logger.Info("contacts imported", "user_id", ownerID, "count", len(created))
	return len(created), nil
}
