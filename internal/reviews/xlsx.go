package reviews

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads reviews from the first sheet of an Excel workbook. The
// first row is the header, as in a CSV export.
type XLSXParser struct{}

// Format returns the parser name.
func (p *XLSXParser) Format() string { return "xlsx" }

// Parse reads the first sheet of the workbook in r.
func (p *XLSXParser) Parse(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Format: p.Format(), Err: fmt.Errorf("opening workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: p.Format(), Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Format: p.Format(), Err: fmt.Errorf("reading sheet %q: %w", sheets[0], err)}
	}

	return decodeTable(p.Format(), &paddedReader{src: newSheetRows(rows), format: p.Format()})
}

// sheetRows feeds the non-blank spreadsheet rows to the record decoder,
// remembering each row's number in the sheet.
type sheetRows struct {
	rows  [][]string
	lines []int
	next  int
}

func newSheetRows(rows [][]string) *sheetRows {
	s := &sheetRows{}
	for i, row := range rows {
		for _, c := range row {
			if c != "" {
				s.rows = append(s.rows, row)
				s.lines = append(s.lines, i+1)
				break
			}
		}
	}
	return s
}

func (s *sheetRows) Read() ([]string, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}

// FieldPos returns the sheet row of the last row read.
func (s *sheetRows) FieldPos(int) (line, column int) {
	if s.next == 0 {
		return 0, 0
	}
	return s.lines[s.next-1], 1
}
