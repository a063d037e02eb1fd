package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/database/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName       = "Contacts"
	ExportFilename  = "contacts.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	createdAtLayout = "2006-01-02 15:04:05"
)

type exportColumn struct {
	Header string
	Width  float64
	Value  func(c *models.Contact) interface{}
}

var exportColumns = []exportColumn{
	{Header: "Name", Width: 30, Value: func(c *models.Contact) interface{} { return c.Name }},
	{Header: "Email", Width: 30, Value: func(c *models.Contact) interface{} { return c.Email }},
	{Header: "Phone", Width: 20, Value: func(c *models.Contact) interface{} { return deref(c.Phone) }},
	{Header: "Address", Width: 40, Value: func(c *models.Contact) interface{} { return deref(c.Address) }},
	{Header: "Timezone", Width: 30, Value: func(c *models.Contact) interface{} { return deref(c.Timezone) }},
	{Header: "Created At", Width: 30, Value: func(c *models.Contact) interface{} {
		return c.CreatedAt.UTC().Format(createdAtLayout)
	}},
}

type Exporter struct {
	contacts *contacts.Service
}

func NewExporter(svc *contacts.Service) *Exporter {
	return &Exporter{contacts: svc}
}

// Workbook renders the owner's live contacts. The caller must Close the file.
func (e *Exporter) Workbook(ctx context.Context, ownerID uint) (*excelize.File, int, error) {
	list, err := e.contacts.ListAll(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	f, err := render(list)
	if err != nil {
		return nil, 0, err
	}
	return f, len(list), nil
}

// Export writes the owner's workbook to w and returns the number of contacts.
// Nothing is written to w when the workbook cannot be built.
func (e *Exporter) Export(ctx context.Context, ownerID uint, w io.Writer) (int, error) {
	f, n, err := e.Workbook(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("writing workbook: %w", err)
	}
	return n, nil
}

func render(list []models.Contact) (*excelize.File, error) {
	f := excelize.NewFile()

	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fail(fmt.Errorf("naming sheet: %w", err))
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fail(fmt.Errorf("creating stream writer: %w", err))
	}

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		if err := sw.SetColWidth(i+1, i+1, col.Width); err != nil {
			return fail(fmt.Errorf("setting column width: %w", err))
		}
		header[i] = col.Header
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fail(fmt.Errorf("creating header style: %w", err))
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return fail(fmt.Errorf("writing header: %w", err))
	}

	for i := range list {
		row := make([]interface{}, len(exportColumns))
		for j, col := range exportColumns {
			row[j] = col.Value(&list[i])
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fail(err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fail(fmt.Errorf("writing row %d: %w", i+2, err))
		}
	}

	if err := sw.Flush(); err != nil {
		return fail(fmt.Errorf("flushing sheet: %w", err))
	}

	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
