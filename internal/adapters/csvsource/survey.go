package csvsource

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"market_intel/internal/domain"
)

var encodings = map[string]encoding.Encoding{
	"latin1":     charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
	"cp1252":     charmap.Windows1252,
	"utf8":       unicode.UTF8,
	"utf-8":      unicode.UTF8,
}

// NewSurveyReader returns a parser for survey exports in the named text
// encoding.
func NewSurveyReader(enc string) (func(io.Reader) (domain.SurveyTable, error), error) {
	e, ok := encodings[strings.ToLower(strings.TrimSpace(enc))]
	if !ok {
		return nil, fmt.Errorf("unsupported survey encoding %q", enc)
	}
	return func(r io.Reader) (domain.SurveyTable, error) {
		return ReadSurvey(e.NewDecoder().Reader(skipBOM(r)))
	}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM drops a leading UTF-8 byte order mark before any decoding, so a
// BOM in a file declared as latin1 does not end up in the first header.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// ReadSurvey reads a UTF-8 survey export into a raw table. Rows keep their
// original width; short rows are handled by the normalizer.
func ReadSurvey(r io.Reader) (domain.SurveyTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.SurveyTable{}, fmt.Errorf("survey: %w", domain.ErrEmptyDataset)
	}
	if err != nil {
		return domain.SurveyTable{}, fmt.Errorf("survey: header: %w", err)
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return domain.SurveyTable{}, fmt.Errorf("survey: %w", err)
	}
	return domain.SurveyTable{Header: stripBOM(header), Rows: rows}, nil
}
