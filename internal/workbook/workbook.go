// Package workbook turns grade spreadsheets into term tables.
//
// An .xlsx workbook holds one sheet per term, in tab order. CSV input holds one
// term per file. Either way the raw rows are decoded against the fixed column
// schema by Decode.
package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
)

// Sheet is the raw content of one worksheet.
type Sheet struct {
	Name string
	Rows [][]string
	// Lines holds the 1-based spreadsheet line of each row.
	Lines []int
}

func (s Sheet) line(i int) int {
	if i < len(s.Lines) && s.Lines[i] > 0 {
		return s.Lines[i]
	}
	return i + 1
}

// Supported reports whether path has an extension this package can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv", ".tsv":
		return true
	}
	return false
}

// Read loads raw sheets from one .xlsx file or from one or more CSV files.
func Read(paths ...string) ([]Sheet, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	var xlsx, csvs []string
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".xlsx":
			xlsx = append(xlsx, p)
		case ".csv", ".tsv":
			csvs = append(csvs, p)
		default:
			return nil, fmt.Errorf("unsupported file type %q (use .xlsx or .csv)", filepath.Ext(p))
		}
	}
	switch {
	case len(xlsx) > 1:
		return nil, fmt.Errorf("one workbook at a time: got %d .xlsx files", len(xlsx))
	case len(xlsx) == 1 && len(csvs) > 0:
		return nil, fmt.Errorf("cannot mix .xlsx and .csv inputs")
	case len(xlsx) == 1:
		return ReadXLSX(xlsx[0])
	}
	return ReadCSV(csvs...)
}

// Load reads the given files and decodes them into a table. Warnings describe
// sheets that were skipped.
func Load(paths ...string) (*grades.Table, []string, error) {
	sheets, err := Read(paths...)
	if err != nil {
		return nil, nil, err
	}
	return Decode(sheets)
}

func osReadFile(p string) ([]byte, error) { return os.ReadFile(p) }
