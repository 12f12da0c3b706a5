package parse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		n         int
		expected  []string
		expectErr bool
	}{
		{
			name:     "Equipment tuple",
			raw:      `["EQ-001","MRI Scanner","Siemens","Radiology","High","2019-04-12"]`,
			n:        6,
			expected: []string{"EQ-001", "MRI Scanner", "Siemens", "Radiology", "High", "2019-04-12"},
		},
		{
			name:     "Numeric and null cells",
			raw:      `["T001","Ravi",null,"ICU",7]`,
			n:        5,
			expected: []string{"T001", "Ravi", "", "ICU", "7"},
		},
		{
			name:     "Trailing cells ignored",
			raw:      `["EQ-9","Pump","B","W1","Low","2020-01-01","extra"]`,
			n:        6,
			expected: []string{"EQ-9", "Pump", "B", "W1", "Low", "2020-01-01"},
		},
		{
			name:      "Short tuple",
			raw:       `["EQ-1","Pump"]`,
			n:         6,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var row []any
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &row))

			got, err := Row(row, tc.n)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNumber(t *testing.T) {
	f, err := Number(float64(4.5))
	require.NoError(t, err)
	assert.Equal(t, 4.5, f)

	f, err = Number(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12.0, f)

	f, err = Number(nil)
	require.NoError(t, err)
	assert.Zero(t, f)

	_, err = Number("twelve")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	d, err := Date("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, 9, d.Day())

	_, err = Date("09/03/2025")
	assert.Error(t, err)
	_, err = Date("")
	assert.Error(t, err)
}
