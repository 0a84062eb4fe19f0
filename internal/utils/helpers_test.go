package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseOptionalYMD(t *testing.T) {
	got, err := ParseOptionalYMD("")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = ParseOptionalYMD(" 2024-02-29 ")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *got)

	_, err = ParseOptionalYMD("29/02/2024")
	require.Error(t, err)
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, 12)
	require.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestEndOfDayExclusive(t *testing.T) {
	require.Equal(t,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndOfDayExclusive(time.Date(2024, 2, 29, 15, 4, 5, 0, time.UTC)))
}
