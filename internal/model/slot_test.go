package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSlotDate(t *testing.T) {
	assert.True(t, ValidSlotDate("2024-01-10"))
	assert.True(t, ValidSlotDate("2024-02-29"))
	assert.False(t, ValidSlotDate("2023-02-29"))
	assert.False(t, ValidSlotDate("2024-1-10"))
	assert.False(t, ValidSlotDate("10_01_2024"))
	assert.False(t, ValidSlotDate(""))
}

func TestValidSlotTime(t *testing.T) {
	for _, s := range []string{"00:00", "09:30", "10:00", "23:59"} {
		assert.True(t, ValidSlotTime(s), s)
	}
	for _, s := range []string{"24:00", "9:30", "10:60", "10:00 AM", ""} {
		assert.False(t, ValidSlotTime(s), s)
	}
}

func TestMinutesOf(t *testing.T) {
	m, err := MinutesOf("10:30")
	require.NoError(t, err)
	assert.Equal(t, 630, m)
	assert.Equal(t, "10:30", FormatSlotMinutes(m))

	_, err = MinutesOf("25:00")
	assert.Error(t, err)
}

func TestSlotWeekday(t *testing.T) {
	wd, err := SlotWeekday("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, 3, int(wd)) // среда
}

func TestAvailabilitySlot_Times(t *testing.T) {
	tpl := &AvailabilitySlot{StartTime: "10:00", EndTime: "11:30", SlotMinutes: 30}

	times, err := tpl.Times()
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "10:30", "11:00"}, times)

	tpl.SlotMinutes = 0
	times, err = tpl.Times()
	require.NoError(t, err)
	assert.Empty(t, times)

	tpl.StartTime = "bad"
	_, err = tpl.Times()
	assert.Error(t, err)
}
