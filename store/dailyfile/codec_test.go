package dailyfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
)

var (
	jan10 = attendance.MustParseDate("2024-01-10")
	jan15 = attendance.MustParseDate("2024-01-15")
)

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestCodec_RoundTrip_CurrentSchema(t *testing.T) {
	names := []string{
		"Ann Lee",
		"Smith, John",
		`Bob "The Builder" Jones`,
		"Line\nBreak",
		`"`,
		"",
	}
	for _, name := range names {
		rec := attendance.Record{
			StudentID:      7,
			Name:           name,
			Status:         attendance.StatusAbsent,
			AttendanceDate: jan15,
			CreationDate:   jan10,
		}

		line := EncodeRecord(rec)
		got, err := DecodeRecord(line, jan15)
		require.NoError(t, err, "name %q line %q", name, line)
		assert.Equal(t, rec, got, "name %q", name)
	}
}

func TestCodec_Encode_PlainNameUnquoted(t *testing.T) {
	line := EncodeRecord(attendance.Record{
		StudentID:      1,
		Name:           "Ann",
		Status:         attendance.StatusPresent,
		AttendanceDate: jan15,
		CreationDate:   jan10,
	})
	assert.Equal(t, "2024-01-15,1,Ann,PRESENT,2024-01-10", line)
}

func TestCodec_Encode_QuotesNameWithDelimiter(t *testing.T) {
	line := EncodeRecord(attendance.Record{
		StudentID:      3,
		Name:           `Smith, "JJ"`,
		Status:         attendance.StatusPresent,
		AttendanceDate: jan15,
		CreationDate:   jan15,
	})
	assert.Equal(t, `2024-01-15,3,"Smith, ""JJ""",PRESENT,2024-01-15`, line)
}

func TestCodec_Encode_ZeroCreationDateWrittenAsAttendanceDate(t *testing.T) {
	line := EncodeRecord(attendance.Record{
		StudentID:      2,
		Name:           "Bo",
		Status:         attendance.StatusAbsent,
		AttendanceDate: jan15,
	})
	assert.Equal(t, "2024-01-15,2,Bo,ABSENT,2024-01-15", line)
}

// =============================================================================
// LEGACY SCHEMAS
// =============================================================================

func TestCodec_Decode_LegacyA_CreationDefaultsToDate(t *testing.T) {
	rec, err := DecodeRecord("2024-01-15,4,Cy,PRESENT", jan10)
	require.NoError(t, err)

	assert.Equal(t, attendance.StudentID(4), rec.StudentID)
	assert.Equal(t, "Cy", rec.Name)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Equal(t, jan15, rec.AttendanceDate)
	assert.Equal(t, jan15, rec.CreationDate)
}

func TestCodec_Decode_LegacyB_DatesFromFile(t *testing.T) {
	rec, err := DecodeRecord("5,Di,absent", jan15)
	require.NoError(t, err)

	assert.Equal(t, attendance.StudentID(5), rec.StudentID)
	assert.Equal(t, attendance.StatusAbsent, rec.Status)
	assert.Equal(t, jan15, rec.AttendanceDate)
	assert.Equal(t, jan15, rec.CreationDate)
}

func TestCodec_Decode_EmptyCreationDateFallsBack(t *testing.T) {
	rec, err := DecodeRecord("2024-01-15,6,Ed,PRESENT,", jan15)
	require.NoError(t, err)
	assert.Equal(t, jan15, rec.CreationDate)
}

func TestCodec_Decode_StatusCaseInsensitive(t *testing.T) {
	rec, err := DecodeRecord("2024-01-15,1,Ann, Present ,2024-01-10", jan15)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
}

// =============================================================================
// MALFORMED LINES
// =============================================================================

func TestCodec_Decode_Malformed(t *testing.T) {
	cases := map[string]string{
		"too few fields":     "1,Ann",
		"too many fields":    "2024-01-15,1,Ann,PRESENT,2024-01-10,extra",
		"non-numeric id":     "2024-01-15,abc,Ann,PRESENT,2024-01-10",
		"zero id":            "2024-01-15,0,Ann,PRESENT,2024-01-10",
		"negative id":        "2024-01-15,-3,Ann,PRESENT",
		"unknown status":     "2024-01-15,1,Ann,LATE,2024-01-10",
		"bad date":           "15/01/2024,1,Ann,PRESENT,2024-01-10",
		"bad creation date":  "2024-01-15,1,Ann,PRESENT,yesterday",
		"legacy B bad id":    "x,Ann,PRESENT",
		"legacy B bad state": "1,Ann,maybe",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecord(line, jan15)
			require.Error(t, err)
			assert.True(t, attendance.IsMalformedRecord(err))

			var mre *attendance.MalformedRecordError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, line, mre.Line)
		})
	}
}

// =============================================================================
// LOGICAL LINES
// =============================================================================

func TestSplitLogicalLines_JoinsQuotedNewline(t *testing.T) {
	data := Header + "\n" +
		"2024-01-15,1,\"Line\nBreak\",PRESENT,2024-01-15\n" +
		"2024-01-15,2,Bo,ABSENT,2024-01-15\n"

	lines := splitLogicalLines(data)
	require.Len(t, lines, 4) // header, two records, trailing empty
	assert.Equal(t, "2024-01-15,1,\"Line\nBreak\",PRESENT,2024-01-15", lines[1])
	assert.Equal(t, "2024-01-15,2,Bo,ABSENT,2024-01-15", lines[2])
}

func TestSplitLogicalLines_CRLF(t *testing.T) {
	lines := splitLogicalLines("a\r\nb\r\n")
	assert.Equal(t, []string{"a", "b", ""}, lines)
}

func TestSplitLogicalLines_UnterminatedQuoteDoesNotSwallowFile(t *testing.T) {
	data := "h\n2024-01-15,1,\"Broken,PRESENT\n2024-01-15,2,Bo,ABSENT,2024-01-15"
	lines := splitLogicalLines(data)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[2], "Bo,ABSENT,2024-01-15"))
}

func TestSplitLogicalLines_QuoteInsideFieldIsLiteral(t *testing.T) {
	data := "h\n" +
		"2024-01-15,1,Ann\"x,PRESENT,2024-01-15\n" +
		"2024-01-15,2,Bo,ABSENT,2024-01-15\n" +
		"2024-01-15,3,Cy\"z,PRESENT,2024-01-15"

	lines := splitLogicalLines(data)
	require.Len(t, lines, 4)
	assert.Equal(t, "2024-01-15,2,Bo,ABSENT,2024-01-15", lines[2])
}

func TestQuoteOpenAfter(t *testing.T) {
	assert.False(t, quoteOpenAfter(`1,Ann"x,PRESENT`, false))
	assert.False(t, quoteOpenAfter(`1,"Smith, ""JJ""",PRESENT`, false))
	assert.True(t, quoteOpenAfter(`1,"Line`, false))
	assert.False(t, quoteOpenAfter(`Break",PRESENT`, true))
	assert.True(t, quoteOpenAfter(`still ""inside`, true))
}
