package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"checkin/internal/domain"
)

// Column positions shared by the CSV header convention and the sheet column
// convention. Existing spreadsheets depend on this order.
const (
	ColTable = iota
	ColGroup
	ColName
	ColTicket
	ColEmail
	ColInfo
	columnCount
)

// RawRow is one unnormalized row. Cells follow the positional contract above;
// ID, Status and CheckedInAt are only filled by sources that store them.
type RawRow struct {
	Cells       []string
	ID          string
	Status      string
	CheckedInAt string
}

func (r RawRow) cell(i int) string {
	if i < len(r.Cells) {
		return strings.TrimSpace(r.Cells[i])
	}
	return ""
}

// headerAliases maps a normalized header to a column position.
var headerAliases = map[string]int{
	"table":          ColTable,
	"tablenumber":    ColTable,
	"tableno":        ColTable,
	"group":          ColGroup,
	"groupname":      ColGroup,
	"company":        ColGroup,
	"organization":   ColGroup,
	"name":           ColName,
	"attendeename":   ColName,
	"fullname":       ColName,
	"attendee":       ColName,
	"ticket":         ColTicket,
	"tickettype":     ColTicket,
	"email":          ColEmail,
	"mail":           ColEmail,
	"emailaddress":   ColEmail,
	"additionalinfo": ColInfo,
	"info":           ColInfo,
	"notes":          ColInfo,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// RowFromCells builds a positional row.
func RowFromCells(cells []string) RawRow {
	return RawRow{Cells: cells}
}

// RowFromMap maps a keyed row (JSON object, database record) onto the
// positional contract. Unknown keys are ignored.
func RowFromMap(m map[string]any) RawRow {
	row := RawRow{Cells: make([]string, columnCount)}
	for k, v := range m {
		key := normalizeHeader(k)
		switch key {
		case "id", "attendeeid":
			row.ID = stringify(v)
			continue
		case "status":
			row.Status = stringify(v)
			continue
		case "checkedinat":
			row.CheckedInAt = stringify(v)
			continue
		}
		if pos, ok := headerAliases[key]; ok && row.Cells[pos] == "" {
			row.Cells[pos] = stringify(v)
		}
	}
	return row
}

// RowFromJSON accepts either an array of cells or an object.
func RowFromJSON(raw json.RawMessage) (RawRow, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var cells []any
		if err := json.Unmarshal(raw, &cells); err != nil {
			return RawRow{}, fmt.Errorf("decode row: %v: %w", err, domain.ErrSourceParse)
		}
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = stringify(c)
		}
		return RowFromCells(out), nil
	case strings.HasPrefix(trimmed, "{"):
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return RawRow{}, fmt.Errorf("decode row: %v: %w", err, domain.ErrSourceParse)
		}
		return RowFromMap(m), nil
	default:
		return RawRow{}, fmt.Errorf("decode row: unexpected %.20q: %w", trimmed, domain.ErrSourceParse)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
