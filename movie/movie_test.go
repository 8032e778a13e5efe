package movie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"7.5", 7.5, true},
		{"0", 0, true},
		{"10", 10, true},
		{NoScore, 0, false},
		{"", 0, false},
		{"N/A", 0, false},
		{"10.1", 0, false},
		{"-1", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseScore(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRecordRow(t *testing.T) {
	r := Record{Title: "Heat", Link: "https://movies.test/heat/", IMDb: "8.3", Release: "1995"}
	row := r.Row()
	assert.Len(t, row, len(Columns))
	assert.Equal(t, "Heat", row[0])
	assert.Equal(t, "1995", row[8])
	assert.Equal(t, "8.3", row[9])

	score, ok := r.Score()
	assert.True(t, ok)
	assert.Equal(t, 8.3, score)
}
