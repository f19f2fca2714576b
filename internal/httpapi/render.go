package httpapi

import (
	"strconv"
	"strings"
)

// The game client parses CSV the way the reference server wrote it: a header
// row, string cells always quoted, numeric and boolean cells bare, CRLF line
// endings. encoding/csv quotes minimally, so the writer is done by hand.

func renderCSV(header []string, rows [][]any) string {
	var b strings.Builder
	for i, name := range header {
		if i > 0 {
			b.WriteByte(',')
		}
		writeQuoted(&b, name)
	}
	b.WriteString("\r\n")

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCell(&b, cell)
		}
		b.WriteString("\r\n")
	}
	return b.String()
}

func writeCell(b *strings.Builder, v any) {
	switch v := v.(type) {
	case string:
		writeQuoted(b, v)
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int:
		b.WriteString(strconv.Itoa(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	default:
		// No other cell types exist in the protocol.
		writeQuoted(b, "")
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(s, `"`, `""`))
	b.WriteByte('"')
}
