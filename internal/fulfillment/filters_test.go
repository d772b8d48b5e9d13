package fulfillment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRange_Inclusive(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	from, to, err := DayRange("2025-01-01", "2025-01-07", loc)
	require.NoError(t, err)

	assert.True(t, from.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc)))
	assert.True(t, to.Equal(time.Date(2025, 1, 8, 0, 0, 0, 0, loc)), "to is exclusive next midnight")
}

func TestDayRange_SameDay(t *testing.T) {
	from, to, err := DayRange("2025-03-10", "2025-03-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}

func TestDayRange_OpenBounds(t *testing.T) {
	from, to, err := DayRange("", "", nil)
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	from, to, err = DayRange("2025-01-01", "", time.UTC)
	require.NoError(t, err)
	assert.False(t, from.IsZero())
	assert.True(t, to.IsZero())
}

func TestDayRange_Invalid(t *testing.T) {
	_, _, err := DayRange("01/01/2025", "", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, _, err = DayRange("", "2025-13-01", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, _, err = DayRange("2025-01-08", "2025-01-07", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestSplitEmployees(t *testing.T) {
	assert.Nil(t, SplitEmployees(""))
	assert.Nil(t, SplitEmployees("  "))
	assert.Equal(t, []string{"e1", "e2"}, SplitEmployees("e1, ,e2,"))
}
