package tagstore

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

const (
	delimiter  = ':'
	escapeChar = '\\'
	fieldCount = 4

	untaggedSentinel      = "untagged"
	pendingSentinel       = "Pending tags"
	noDescriptionSentinel = "No description available"
)

var fieldEscaper = strings.NewReplacer(
	`\`, `\\`,
	`:`, `\:`,
	"\r", `\r`,
	"\n", `\n`,
)

// Encode renders r as one store line without the trailing newline.
func Encode(r Record) string {
	tags := r.Tags
	switch r.Status {
	case StatusUntagged:
		tags = untaggedSentinel
	case StatusPending:
		tags = pendingSentinel
	}

	description := r.Description
	if description == "" {
		description = noDescriptionSentinel
	}

	var b strings.Builder
	b.Grow(len(r.Key) + len(r.Format) + len(tags) + len(description) + 3)
	b.WriteString(fieldEscaper.Replace(r.Key))
	b.WriteByte(delimiter)
	b.WriteString(fieldEscaper.Replace(r.Format))
	b.WriteByte(delimiter)
	b.WriteString(fieldEscaper.Replace(tags))
	b.WriteByte(delimiter)
	b.WriteString(fieldEscaper.Replace(description))
	return b.String()
}

// Decode parses one store line. Lines that do not split into exactly four
// fields return ErrCorrupt.
func Decode(line string) (Record, error) {
	fields := splitFields(line)
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: %d fields", ErrCorrupt, len(fields))
	}
	if fields[0] == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrCorrupt)
	}
	return NewRecord(fields[0], fields[1], fields[2], fields[3]), nil
}

// splitFields splits on unescaped delimiters, at most fieldCount ways, and
// resolves escapes. The last field keeps any further delimiters verbatim.
// A backslash that does not start a known escape is kept as is.
func splitFields(line string) []string {
	fields := make([]string, 0, fieldCount)
	var cur strings.Builder

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == escapeChar && i+1 < len(line):
			switch line[i+1] {
			case escapeChar, delimiter:
				cur.WriteByte(line[i+1])
				i++
			case 'r':
				cur.WriteByte('\r')
				i++
			case 'n':
				cur.WriteByte('\n')
				i++
			default:
				cur.WriteByte(c)
			}
		case c == delimiter && len(fields) < fieldCount-1:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// EncodeAll renders records sorted by key, one line each.
func EncodeAll(records map[string]Record) []byte {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(Encode(records[k].WithKey(k)))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeAll parses a whole store file. Blank lines are ignored; undecodable
// lines are skipped and reported through onCorrupt with their 1-based line
// number. A later line for the same key replaces an earlier one.
func DecodeAll(data []byte, onCorrupt func(lineNo int, err error)) map[string]Record {
	records := make(map[string]Record)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := Decode(line)
		if err != nil {
			if onCorrupt != nil {
				onCorrupt(lineNo, err)
			}
			continue
		}
		records[r.Key] = r
	}
	if err := scanner.Err(); err != nil && onCorrupt != nil {
		onCorrupt(lineNo+1, fmt.Errorf("%w: %v", ErrCorrupt, err))
	}
	return records
}
