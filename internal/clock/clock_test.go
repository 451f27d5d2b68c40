package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "2024-05-01 09:30"},
		{name: "midnight", input: "2024-05-01 00:00"},
		{name: "short hour", input: "2024-05-01 9:30", wantErr: true},
		{name: "missing time", input: "2024-05-01", wantErr: true},
		{name: "hour out of range", input: "2024-05-01 24:00", wantErr: true},
		{name: "minute out of range", input: "2024-05-01 10:60", wantErr: true},
		{name: "bad month", input: "2024-13-01 10:00", wantErr: true},
		{name: "T separator", input: "2024-05-01T10:00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", day)

	_, err = ParseDay("2024-5-1")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = ParseDay("2024-05-01 10:00")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestStampParts(t *testing.T) {
	s := MustParse("2024-05-01 11:05")
	assert.Equal(t, "2024-05-01", s.Day())
	assert.Equal(t, "11:05", s.Clock())
	assert.Equal(t, 11*60+5, s.Minute())
	assert.False(t, s.IsZero())
	assert.True(t, Stamp{}.IsZero())
}

func TestAddMinutes(t *testing.T) {
	tests := []struct {
		start string
		add   int
		want  string
	}{
		{"2024-05-01 09:00", 60, "2024-05-01 10:00"},
		{"2024-05-01 09:45", 30, "2024-05-01 10:15"},
		{"2024-05-01 11:00", 0, "2024-05-01 11:00"},
		// Wraps the hour without rolling the date.
		{"2024-05-01 23:50", 20, "2024-05-01 00:10"},
		{"2024-05-01 23:00", 60, "2024-05-01 00:00"},
		{"2024-05-01 00:10", -20, "2024-05-01 23:50"},
	}

	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			got := MustParse(tt.start).AddMinutes(tt.add)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCompareMatchesLexicalOrder(t *testing.T) {
	values := []string{
		"2023-12-31 23:59",
		"2024-01-01 00:00",
		"2024-01-01 00:01",
		"2024-01-01 10:00",
		"2024-01-02 09:00",
	}
	for i := range values {
		for j := range values {
			a, b := MustParse(values[i]), MustParse(values[j])
			want := 0
			if values[i] < values[j] {
				want = -1
			} else if values[i] > values[j] {
				want = 1
			}
			assert.Equal(t, want, a.Compare(b), "%s vs %s", values[i], values[j])
		}
	}
}

func TestTime(t *testing.T) {
	got := MustParse("2024-05-01 09:30").Time()
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), got)
}

func TestFromTimeIgnoresLocation(t *testing.T) {
	loc := time.FixedZone("X", 9*3600)
	s := FromTime(time.Date(2024, 5, 1, 8, 15, 42, 0, loc))
	assert.Equal(t, "2024-05-01 08:15", s.String())
}

func TestFormatMinute(t *testing.T) {
	assert.Equal(t, "00:00", FormatMinute(0))
	assert.Equal(t, "09:05", FormatMinute(9*60+5))
	assert.Equal(t, "24:00", FormatMinute(MinutesPerDay))
}
