package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"slotledger/pkg/contracts/domain"
)

func sampleTable() *domain.AggregateTable {
	table := domain.NewAggregateTable()
	table.Set("1", "2024/10/17", "118.2")
	table.Set("2", "2024/10/17", "132.0")
	table.Set("1", "2024/10/18", "141.5")
	table.Set("3", "2024/10/18", "99.9")
	return table
}

func TestWorkbookWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aggregate.xlsx")
	opts := DefaultWorkbookOptions()
	w := NewWorkbookWriter(opts, nil)

	require.NoError(t, w.Write(sampleTable(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{opts.SheetName}, f.GetSheetList())

	rows, err := f.GetRows(opts.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"台番号", "2024/10/17", "2024/10/18"}, rows[0])
	assert.Equal(t, []string{"1", "118.2", "141.5"}, rows[1])
	assert.Equal(t, []string{"2", "132.0"}, rows[2])
	assert.Equal(t, []string{"3", "", "99.9"}, rows[3])
}

func TestWorkbookWriter_Layout(t *testing.T) {
	table := domain.NewAggregateTable()
	table.Set("1", "2024/10/17", "a very long composite value text")

	path := filepath.Join(t.TempDir(), "aggregate.xlsx")
	opts := DefaultWorkbookOptions()
	require.NoError(t, NewWorkbookWriter(opts, nil).Write(table, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	widthA, err := f.GetColWidth(opts.SheetName, "A")
	require.NoError(t, err)
	assert.Equal(t, 10.0, widthA)

	widthB, err := f.GetColWidth(opts.SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("a very long composite value text")+2), widthB)

	for _, row := range []int{1, 2} {
		height, err := f.GetRowHeight(opts.SheetName, row)
		require.NoError(t, err)
		assert.Equal(t, 20.0, height)
	}

	styleID, err := f.GetCellStyle(opts.SheetName, "B2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.Equal(t, "メイリオ", style.Font.Family)
}

func TestWorkbookWriter_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aggregate.xlsx")
	opts := DefaultWorkbookOptions()
	require.NoError(t, NewWorkbookWriter(opts, nil).Write(domain.NewAggregateTable(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(opts.SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"台番号"}}, rows)
}

func TestWorkbookWriter_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aggregate.xlsx")
	w := NewWorkbookWriter(DefaultWorkbookOptions(), nil)

	require.NoError(t, w.Write(sampleTable(), path))

	smaller := domain.NewAggregateTable()
	smaller.Set("9", "2024/10/20", "130")
	require.NoError(t, w.Write(smaller, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("合成確率")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"台番号", "2024/10/20"}, {"9", "130"}}, rows)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWorkbookWriter_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "aggregate.xlsx")
	err := NewWorkbookWriter(DefaultWorkbookOptions(), nil).Write(sampleTable(), path)
	assert.Error(t, err)
}
