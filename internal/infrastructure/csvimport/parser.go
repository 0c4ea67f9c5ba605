// Package csvimport reads CSV uploads row by row and validates them against
// declarative column rules.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file must be UTF-8 encoded")
	ErrMissingHeader   = errors.New("CSV file missing header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const peekSize = 4096

// Parser reads a CSV stream whose first row names the columns.
// Header names are matched case-insensitively.
type Parser struct {
	reader  *csv.Reader
	headers []string
	index   map[string]int
	line    int
}

// ParserOption configures a Parser
type ParserOption func(*csv.Reader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(r *csv.Reader) { r.Comma = d }
}

// NewParser strips a UTF-8 BOM, checks the encoding and reads the header row
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	buf := bufio.NewReader(r)

	head, err := buf.Peek(peekSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	truncated := len(head) == peekSize
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = buf.Discard(len(utf8BOM))
		head = head[len(utf8BOM):]
	}
	if len(strings.TrimSpace(string(head))) == 0 {
		return nil, ErrEmptyFile
	}
	if !validUTF8(head, truncated) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(buf)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(reader)
	}

	p := &Parser{reader: reader, index: make(map[string]int)}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// validUTF8 checks a peeked prefix. A rune cut by the peek window is allowed.
func validUTF8(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}

func (p *Parser) readHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1

	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" {
			continue
		}
		p.headers = append(p.headers, name)
		p.index[name] = i
	}
	if len(p.headers) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the normalized header names in file order
func (p *Parser) Headers() []string {
	return p.headers
}

// MissingHeaders returns the required columns the file lacks
func (p *Parser) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.index[strings.ToLower(h)]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row keyed by header name
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a column, or "" when absent
func (r *Row) Get(column string) string {
	return r.Data[strings.ToLower(column)]
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next non-blank row, or io.EOF
func (p *Parser) Next() (*Row, error) {
	for {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		p.line++
		if err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", p.line, err)
		}

		row := &Row{Line: p.line, Data: make(map[string]string, len(p.headers))}
		for name, i := range p.index {
			if i < len(record) {
				row.Data[name] = strings.TrimSpace(record[i])
			} else {
				row.Data[name] = ""
			}
		}
		if !row.IsEmpty() {
			return row, nil
		}
	}
}
