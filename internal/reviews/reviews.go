// Package reviews reads bank review files and cleans their columns.
package reviews

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bankreviews-dev/bankreviews/internal/model"
)

// ErrNoBankColumn is returned when a file has no bank column to partition on.
var ErrNoBankColumn = errors.New("bank column not found")

// ParseError reports malformed review file content.
type ParseError struct {
	Format string
	Row    int // 0 when the error is not tied to a row
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parsing %s: row %d: %v", e.Format, e.Row, e.Err)
	}
	return fmt.Sprintf("parsing %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Table is the parsed content of one review file.
type Table struct {
	Columns model.ColumnSet
	Rows    []model.RawReviewRow
}

// MissingColumns returns the expected columns the file does not have.
func (t *Table) MissingColumns() []string {
	return t.Columns.Missing()
}

// Parser converts a review file into a Table.
type Parser interface {
	Parse(r io.Reader) (*Table, error)
	Format() string
}

// Registry holds parsers keyed by file extension.
type Registry struct {
	parsers  map[string]Parser
	fallback Parser
}

// NewRegistry creates a registry that uses fallback for unknown extensions.
func NewRegistry(fallback Parser) *Registry {
	return &Registry{parsers: make(map[string]Parser), fallback: fallback}
}

// Register adds a parser for its format's extension. Panics on duplicates.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForPath returns the parser matching the file extension of path.
func (r *Registry) ForPath(path string) Parser {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if p := r.Get(ext); p != nil {
		return p
	}
	return r.fallback
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		exts = append(exts, k)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry returns a registry with the CSV and XLSX parsers.
// Files with any other extension are read as CSV.
func DefaultRegistry() *Registry {
	csvParser := &CSVParser{}
	r := NewRegistry(csvParser)
	r.Register(csvParser)
	r.Register(&XLSXParser{})
	return r
}

// LoadFile opens path and parses it with the matching parser. A missing
// file yields an error matching fs.ErrNotExist.
func (r *Registry) LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return r.ForPath(path).Parse(f)
}

// FileInfo describes a review file found by Scan.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the review files directly inside dir that some parser in r
// handles, sorted by name. A missing dir yields no files.
func (r *Registry) Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		if r.Get(ext) == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}
