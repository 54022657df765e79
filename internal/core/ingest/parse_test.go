package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/compat/internal/core/model"
)

func TestParse_Basic(t *testing.T) {
	input := "Product ID,Compatible Product IDs\n" +
		"A,\"B, C\"\n" +
		"\n" +
		"D,E\n"

	table, err := Parse(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{ColumnProductID, ColumnCompatibleIDs}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "A", table.Rows[0].Fields[ColumnProductID])
	assert.Equal(t, "B, C", table.Rows[0].Fields[ColumnCompatibleIDs])
	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, "D", table.Rows[1].Fields[ColumnProductID])
	assert.Equal(t, 4, table.Rows[1].Line)
}

func TestParse_Empty(t *testing.T) {
	table, err := Parse(strings.NewReader(""), ParseOptions{})
	require.NoError(t, err)
	assert.Nil(t, table.Header)
	assert.Empty(t, table.Rows)
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := Parse(strings.NewReader("Product ID,Compatible Product IDs\n"), ParseOptions{})
	require.NoError(t, err)
	assert.Len(t, table.Header, 2)
	assert.Empty(t, table.Rows)
}

func TestParse_StripsBOM(t *testing.T) {
	table, err := Parse(strings.NewReader("\ufeffProduct ID,Compatible Product IDs\nA,B\n"), ParseOptions{})
	require.NoError(t, err)
	assert.True(t, table.HasColumn(ColumnProductID))
}

func TestParse_ShortAndLongRows(t *testing.T) {
	input := "Product ID,Compatible Product IDs\nA\nB,C,extra\n"

	table, err := Parse(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	_, ok := table.Rows[0].Value(ColumnCompatibleIDs)
	assert.False(t, ok)
	assert.Len(t, table.Rows[1].Fields, 2)
	assert.Equal(t, "C", table.Rows[1].Fields[ColumnCompatibleIDs])
}

func TestParse_Delimiter(t *testing.T) {
	input := "Product ID;Compatible Product IDs\nA;B,C\n"

	table, err := Parse(strings.NewReader(input), ParseOptions{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "B,C", table.Rows[0].Fields[ColumnCompatibleIDs])
}

func TestParse_HeaderCaseSensitive(t *testing.T) {
	table, err := Parse(strings.NewReader("product id,compatible product ids\nA,B\n"), ParseOptions{})
	require.NoError(t, err)
	assert.False(t, table.HasColumn(ColumnProductID))
}

func TestParse_MalformedQuote(t *testing.T) {
	input := "Product ID,Compatible Product IDs\nA,\"B,C\n"

	_, err := Parse(strings.NewReader(input), ParseOptions{})
	require.Error(t, err)

	var parseErr *model.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Greater(t, parseErr.Line, 0)
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestParse_ReaderFailure(t *testing.T) {
	_, err := Parse(brokenReader{}, ParseOptions{})
	require.Error(t, err)

	var parseErr *model.ParseError
	assert.False(t, errors.As(err, &parseErr))
	assert.ErrorContains(t, err, "connection reset")
}
