package transfer_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/testutil"
	"github.com/hugh/contact-keeper/internal/transfer"
	"github.com/hugh/contact-keeper/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := "name,email,phone,address,timezone\n" +
		"Anna,anna@example.com,555-0100,\"Main St 1, Berlin\",Europe/Berlin\n" +
		"\n" +
		"Bob,bob@example.com,,,\n" +
		"Chen,chen@example.com,,,GMT+5:30\n"

	rows, err := transfer.ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Anna", rows[0].Name)
	require.NotNil(t, rows[0].Address)
	assert.Equal(t, "Main St 1, Berlin", *rows[0].Address)
	assert.Equal(t, "Europe/Berlin", *rows[0].Timezone)

	assert.Equal(t, "Bob", rows[1].Name)
	assert.Nil(t, rows[1].Phone)
	assert.Nil(t, rows[1].Timezone)

	require.NotNil(t, rows[2].Timezone)
	assert.Equal(t, "GMT+5:30", *rows[2].Timezone)
}

func TestParseCSV_HeaderHandling(t *testing.T) {
	t.Run("reordered, padded and mixed-case header with BOM", func(t *testing.T) {
		input := "\ufeff Email , NAME,notes\nanna@example.com,Anna,ignored\n"
		rows, err := transfer.ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Anna", rows[0].Name)
		assert.Equal(t, "anna@example.com", rows[0].Email)
	})

	t.Run("short rows leave optional fields empty", func(t *testing.T) {
		input := "name,email,phone,address,timezone\nAnna,anna@example.com\n"
		rows, err := transfer.ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0].Address)
	})

	t.Run("missing email column", func(t *testing.T) {
		_, err := transfer.ParseCSV(strings.NewReader("name,phone\nAnna,1\n"))
		assert.ErrorIs(t, err, transfer.ErrMissingColumns)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := transfer.ParseCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, transfer.ErrEmptyFile)
	})

	t.Run("header only", func(t *testing.T) {
		rows, err := transfer.ParseCSV(strings.NewReader("name,email\n"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestParseCSV_RowErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLine  int
		wantField string
	}{
		{name: "missing name", input: "name,email\nAnna,anna@example.com\n,bob@example.com\n", wantLine: 3, wantField: "name"},
		{name: "bad email", input: "name,email\nAnna,not-an-email\n", wantLine: 2, wantField: "email"},
		{name: "long timezone", input: "name,email,timezone\nAnna,anna@example.com," + strings.Repeat("z", 101) + "\n", wantLine: 2, wantField: "timezone"},
		{name: "bare quote", input: "name,email\nAnna,ann\"a@example.com\n", wantLine: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transfer.ParseCSV(strings.NewReader(tt.input))
			var rowErr *transfer.RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, tt.wantLine, rowErr.Line)
			assert.Equal(t, tt.wantField, rowErr.Field)
		})
	}
}

func TestParseCSV_TooManyRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,email\n")
	for i := 0; i <= transfer.MaxImportRows; i++ {
		fmt.Fprintf(&b, "User %d,user%d@example.com\n", i, i)
	}

	_, err := transfer.ParseCSV(strings.NewReader(b.String()))
	assert.ErrorIs(t, err, transfer.ErrTooManyRows)
}

func TestImporter_Import(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	svc := contacts.NewService(tc.DB)
	importer := transfer.NewImporter(svc, util.DiscardLogger())

	t.Run("stores every row", func(t *testing.T) {
		n, err := importer.Import(ctx, tc.User.ID, strings.NewReader(
			"name,email\nAnna,anna@example.com\nBob,bob@example.com\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		list, err := svc.ListAll(ctx, tc.User.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("duplicate email aborts with nothing stored", func(t *testing.T) {
		_, err := importer.Import(ctx, tc.User.ID, strings.NewReader(
			"name,email\nCarl,carl@example.com\nDora,dora@example.com\nAnna again,anna@example.com\n"))
		require.Error(t, err)

		var batchErr *contacts.BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 3, batchErr.Row)

		list, err := svc.ListAll(ctx, tc.User.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2, "no row of the failed batch may remain")
	})

	t.Run("empty upload", func(t *testing.T) {
		_, err := importer.Import(ctx, tc.User.ID, strings.NewReader("name,email\n"))
		assert.ErrorIs(t, err, transfer.ErrNoRows)
	})

	t.Run("rows belong to the uploader", func(t *testing.T) {
		other, _ := tc.NewUser(t)
		_, err := importer.Import(ctx, other.ID, strings.NewReader("name,email\nEve,eve@example.com\n"))
		require.NoError(t, err)

		mine, err := svc.List(ctx, tc.User.ID, contacts.Filter{Name: "eve"})
		require.NoError(t, err)
		assert.Empty(t, mine)
	})
}
