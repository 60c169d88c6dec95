package workbook

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// ReadXLSX returns every worksheet of an .xlsx file in tab order.
func ReadXLSX(p string) ([]Sheet, error) {
	b, err := osReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return ParseXLSX(b, filepath.Base(p))
}

// ParseXLSX decodes an in-memory .xlsx file. name is only used in messages.
func ParseXLSX(b []byte, name string) ([]Sheet, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", name, err)
	}
	wbXML, err := readZipFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", name, err)
	}
	relsXML, _ := readZipFile(zr, "xl/_rels/workbook.xml.rels")
	sharedXML, _ := readZipFile(zr, "xl/sharedStrings.xml")

	entries, err := parseWorkbook(wbXML)
	if err != nil {
		return nil, fmt.Errorf("parse workbook %s: %w", name, err)
	}
	rels := parseRelationships(relsXML)
	shared := parseSharedStrings(sharedXML)

	sheets := make([]Sheet, 0, len(entries))
	for i, e := range entries {
		target := ""
		if rel, ok := rels[e.RID]; ok {
			target = normalizeRelPath(rel)
		}
		if target == "" {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		data, err := readZipFile(zr, target)
		if err != nil {
			return nil, fmt.Errorf("sheet %q in %s: %w", e.Name, name, err)
		}
		sh := Sheet{Name: e.Name}
		rr := newSheetRowReader(data, shared)
		for {
			row, line, ok := rr.Next()
			if !ok {
				break
			}
			sh.Rows = append(sh.Rows, row)
			sh.Lines = append(sh.Lines, line)
		}
		if err := rr.Err(); err != nil {
			return nil, fmt.Errorf("sheet %q in %s: %w", e.Name, name, err)
		}
		sheets = append(sheets, sh)
	}
	return sheets, nil
}

type wbSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// parseWorkbook lists the sheets declared in xl/workbook.xml; document order
// is the tab order shown by spreadsheet applications.
func parseWorkbook(data []byte) ([]wbSheet, error) {
	var wb struct {
		Sheets []wbSheet `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil, err
	}
	return wb.Sheets, nil
}

// parseRelationships maps relationship ids to their targets.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &rels); err != nil {
		return out
	}
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			out[r.ID] = r.Target
		}
	}
	return out
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing part %s", name)
}

// parseSharedStrings reads the shared string table. Rich text runs inside one
// <si> are concatenated; phonetic hints (<rPh>) are dropped.
func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT bool
	var inPhonetic int
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "rPh":
				inPhonetic++
			case "t":
				inT = inPhonetic == 0
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "rPh":
				inPhonetic--
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// sheetRowReader streams rows from a worksheet part. Rows are returned densely:
// gaps in cell references become empty strings.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	err    error
	line   int
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the next row and its 1-based spreadsheet line number.
func (r *sheetRowReader) Next() ([]string, int, bool) {
	var cur []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err != io.EOF {
				r.err = err
			}
			return nil, 0, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow = true
				cur = nil
				r.line++
				for _, a := range se.Attr {
					if a.Name.Local == "r" {
						if n := atoiSafe(a.Value); n > 0 {
							r.line = n
						}
					}
				}
			case inRow && se.Name.Local == "c":
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := len(cur)
				if ref != "" {
					col = colIndexFromRef(ref)
				}
				val := r.readCellValue(typ)
				if col < 0 {
					continue
				}
				for len(cur) <= col {
					cur = append(cur, "")
				}
				cur[col] = val
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				return cur, r.line, true
			}
		}
	}
}

func (r *sheetRowReader) Err() error { return r.err }

// readCellValue consumes tokens up to </c> and resolves the cell's text.
func (r *sheetRowReader) readCellValue(typ string) string {
	var val strings.Builder
	capture := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val.String()
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				capture = true
			}
		case xml.CharData:
			if capture {
				val.Write(se)
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v", "t":
				capture = false
			case "c":
				s := val.String()
				switch typ {
				case "s":
					idx := atoiSafe(s)
					if idx >= 0 && idx < len(r.shared) {
						return r.shared[idx]
					}
					return ""
				case "b":
					if s == "1" {
						return "TRUE"
					}
					return "FALSE"
				}
				return s
			}
		}
	}
}

// colIndexFromRef converts a cell reference such as "C12" to a 0-based column.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts a relationship target to a ZIP entry name.
// Targets are relative to xl/ unless they start with a slash.
func normalizeRelPath(rel string) string {
	if strings.HasPrefix(rel, "/") {
		return strings.TrimPrefix(rel, "/")
	}
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
