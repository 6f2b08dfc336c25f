/*
codec.go - One attendance record <-> one delimited text line

SCHEMAS (dispatched on field count, tried in this order):
  current  (5): date,student_id,student_name,attendance_status,creation_date
  legacy A (4): date,student_id,student_name,attendance_status
                creation_date := date
  legacy B (3): student_id,student_name,attendance_status
                date := creation_date := date taken from the file name

  Older files are still on disk, so the order and the defaults above are
  load-bearing. A field count outside 3..5 is malformed, not a fourth schema.

ESCAPING:
  The name is the only free-text field. It is wrapped in double quotes, with
  inner quotes doubled, when it contains the delimiter, a quote, CR or LF.
  A quoted name may therefore span physical lines; splitLogicalLines rejoins
  them before decoding.

ERRORS:
  Every decode failure is an *attendance.MalformedRecordError holding the
  line text. Callers reading a whole file skip the line and keep going.

SEE ALSO:
  - file.go: Uses the codec for whole-file reads and writes
*/
package dailyfile

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/warp/attendance-engine/attendance"
)

// Delimiter separates fields in a line.
const Delimiter = ','

// Header is the first line of every file written by this package.
const Header = "date,student_id,student_name,attendance_status,creation_date"

// =============================================================================
// SCHEMA TABLE
// =============================================================================

type schema struct {
	name   string
	arity  int
	decode func(fields []string, fileDate attendance.Date) (attendance.Record, string)
}

// schemas is tried top to bottom. Order matters.
var schemas = []schema{
	{name: "current", arity: 5, decode: decodeCurrent},
	{name: "legacy-a", arity: 4, decode: decodeLegacyA},
	{name: "legacy-b", arity: 3, decode: decodeLegacyB},
}

// =============================================================================
// ENCODE
// =============================================================================

// EncodeRecord renders a record in the current schema, without a line terminator.
// A zero creation date is written as the attendance date.
func EncodeRecord(r attendance.Record) string {
	var b strings.Builder
	b.WriteString(r.AttendanceDate.String())
	b.WriteByte(Delimiter)
	b.WriteString(strconv.FormatInt(int64(r.StudentID), 10))
	b.WriteByte(Delimiter)
	b.WriteString(escapeName(r.Name))
	b.WriteByte(Delimiter)
	b.WriteString(string(r.Status))
	b.WriteByte(Delimiter)
	b.WriteString(r.EffectiveCreationDate().String())
	return b.String()
}

func escapeName(name string) string {
	if strings.ContainsAny(name, string(Delimiter)+"\"\n\r") {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// =============================================================================
// DECODE
// =============================================================================

// DecodeRecord parses one logical line. fileDate supplies the dates for the
// oldest schema, which stored neither.
func DecodeRecord(line string, fileDate attendance.Date) (attendance.Record, error) {
	fields, err := splitFields(line)
	if err != nil {
		return attendance.Record{}, malformed(line, err.Error())
	}
	if len(fields) < 3 {
		return attendance.Record{}, malformed(line, "expected at least 3 fields, got "+strconv.Itoa(len(fields)))
	}

	for _, s := range schemas {
		if len(fields) != s.arity {
			continue
		}
		rec, reason := s.decode(fields, fileDate)
		if reason != "" {
			return attendance.Record{}, malformed(line, s.name+": "+reason)
		}
		return rec, nil
	}
	return attendance.Record{}, malformed(line, "unsupported field count "+strconv.Itoa(len(fields)))
}

func decodeCurrent(f []string, _ attendance.Date) (attendance.Record, string) {
	rec, reason := decodeDated(f[:4])
	if reason != "" {
		return rec, reason
	}
	if c := strings.TrimSpace(f[4]); c != "" {
		created, err := attendance.ParseDate(c)
		if err != nil {
			return rec, "invalid creation date " + strconv.Quote(c)
		}
		rec.CreationDate = created
	}
	return rec, ""
}

func decodeLegacyA(f []string, _ attendance.Date) (attendance.Record, string) {
	return decodeDated(f)
}

func decodeLegacyB(f []string, fileDate attendance.Date) (attendance.Record, string) {
	rec, reason := decodeCore(f[0], f[1], f[2])
	if reason != "" {
		return rec, reason
	}
	rec.AttendanceDate = fileDate
	rec.CreationDate = fileDate
	return rec, ""
}

// decodeDated handles date,id,name,status with creation date defaulting to date.
func decodeDated(f []string) (attendance.Record, string) {
	d := strings.TrimSpace(f[0])
	date, err := attendance.ParseDate(d)
	if err != nil {
		return attendance.Record{}, "invalid date " + strconv.Quote(d)
	}
	rec, reason := decodeCore(f[1], f[2], f[3])
	if reason != "" {
		return rec, reason
	}
	rec.AttendanceDate = date
	rec.CreationDate = date
	return rec, ""
}

func decodeCore(id, name, status string) (attendance.Record, string) {
	id = strings.TrimSpace(id)
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return attendance.Record{}, "invalid student id " + strconv.Quote(id)
	}
	st, err := attendance.ParseStatus(status)
	if err != nil {
		return attendance.Record{}, "invalid status " + strconv.Quote(strings.TrimSpace(status))
	}
	return attendance.Record{
		StudentID: attendance.StudentID(n),
		Name:      strings.TrimSpace(name),
		Status:    st,
	}, ""
}

func malformed(line, reason string) *attendance.MalformedRecordError {
	return &attendance.MalformedRecordError{Line: line, Reason: reason}
}

// =============================================================================
// SPLITTING
// =============================================================================

// splitFields splits one logical line, honoring quoted fields.
func splitFields(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		return nil, err
	}
	if _, err := r.Read(); err != io.EOF {
		return nil, errTrailingData
	}
	return fields, nil
}

type codecError string

func (e codecError) Error() string { return string(e) }

const errTrailingData = codecError("unexpected data after record")

// splitLogicalLines turns file content into logical lines. Physical lines
// are joined while a quoted field is open. A quote opens a field only at the
// start of that field; quotes elsewhere are literal. Joining stops before a
// physical line that decodes as a record on its own, and a quote still open
// at that point is not joined at all, so one damaged line cannot swallow the
// lines after it.
func splitLogicalLines(data string) []string {
	phys := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")

	var out []string
	for i := 0; i < len(phys); {
		buf := phys[i]
		open := quoteOpenAfter(buf, false)
		j := i
		for open && j+1 < len(phys) && !isRecord(phys[j+1]) {
			j++
			buf += "\n" + phys[j]
			open = quoteOpenAfter(phys[j], true)
		}
		if open {
			out = append(out, phys[i])
			i++
			continue
		}
		out = append(out, buf)
		i = j + 1
	}
	return out
}

func isRecord(line string) bool {
	_, err := DecodeRecord(line, attendance.Date{})
	return err == nil
}

// quoteOpenAfter reports whether a quoted field is still open at the end of
// line, given whether one was open at its start.
func quoteOpenAfter(line string, inQuote bool) bool {
	fieldStart := !inQuote
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					i++
					continue
				}
				inQuote = false
			}
		case c == Delimiter:
			fieldStart = true
			continue
		case c == '"' && fieldStart:
			inQuote = true
		}
		fieldStart = false
	}
	return inQuote
}
