package workbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadCSV reads each file as one term sheet named after the file without its
// extension. The delimiter is sniffed from the first line.
func ReadCSV(paths ...string) ([]Sheet, error) {
	sheets := make([]Sheet, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		sh, err := parseCSV(f, name, strings.EqualFold(filepath.Ext(p), ".tsv"))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", filepath.Base(p), err)
		}
		sheets = append(sheets, sh)
	}
	return sheets, nil
}

func parseCSV(r io.Reader, name string, tsv bool) (Sheet, error) {
	br := bufio.NewReader(r)
	// Drop a UTF-8 byte order mark written by spreadsheet exports.
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	delim := '\t'
	if !tsv {
		first, _ := br.Peek(4096)
		delim = sniffDelimiter(first)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comma = delim

	sh := Sheet{Name: name}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, err
		}
		line, _ := cr.FieldPos(0)
		sh.Rows = append(sh.Rows, rec)
		sh.Lines = append(sh.Lines, line)
	}
	return sh, nil
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas, which is what spreadsheet software emits in comma-decimal locales.
func sniffDelimiter(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	switch {
	case bytes.Count(head, []byte{'\t'}) > max(bytes.Count(head, []byte{';'}), bytes.Count(head, []byte{','})):
		return '\t'
	case bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}):
		return ';'
	}
	return ','
}
