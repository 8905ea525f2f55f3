package sheets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"checkin/internal/domain"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode strips a UTF-8/UTF-16 BOM and converts to UTF-8. Input that is
// not valid UTF-8 is read as Latin-1 (older Excel exports).
func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
		if err != nil {
			return nil, fmt.Errorf("decode utf-16: %v: %w", err, domain.ErrSourceParse)
		}
		return out, nil
	}
	data = bytes.TrimPrefix(data, bomUTF8)
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode latin-1: %v: %w", err, domain.ErrSourceParse)
	}
	return out, nil
}

// sniffDelimiter picks the most frequent of , ; and tab on the first line,
// ignoring quoted text.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	counts := map[rune]int{}
	inQuotes := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ',' || r == ';' || r == '\t'):
			counts[r]++
		}
	}
	best := ','
	for _, r := range []rune{';', '\t'} {
		if counts[r] > counts[best] {
			best = r
		}
	}
	return best
}

// ParseTable parses a delimited export. The first row is the header and is
// skipped; the remaining rows are returned positionally. Quoted fields may
// contain the delimiter and line breaks.
func ParseTable(data []byte) ([][]string, error) {
	decoded, err := decode(data)
	if err != nil {
		return nil, err
	}
	head := strings.ToLower(strings.TrimSpace(string(decoded[:min(len(decoded), 64)])))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		return nil, fmt.Errorf("la réponse est une page HTML, pas un tableau (feuille non publiée ?): %w", domain.ErrSourceParse)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sniffDelimiter(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %v: %w", err, domain.ErrSourceParse)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %v: %w", len(rows)+2, err, domain.ErrSourceParse)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
