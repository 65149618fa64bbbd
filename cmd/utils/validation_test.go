package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenHourLabels(t *testing.T) {
	labels := OpenHourLabels()

	assert.Len(t, labels, 15)
	assert.Equal(t, "07:00", labels[0])
	assert.Equal(t, "21:00", labels[len(labels)-1])
	assert.Contains(t, labels, "12:00")
}

func TestSubtractTakenLabels(t *testing.T) {
	open := SubtractTakenLabels(OpenHourLabels(), []string{"07:00", "09:00", "21:00"})

	assert.Len(t, open, 12)
	assert.NotContains(t, open, "07:00")
	assert.NotContains(t, open, "09:00")
	assert.NotContains(t, open, "21:00")
	assert.Contains(t, open, "08:00")
}

func TestSubtractTakenLabelsNothingTaken(t *testing.T) {
	open := SubtractTakenLabels(OpenHourLabels(), nil)
	assert.Equal(t, OpenHourLabels(), open)
}

func TestSubtractTakenLabelsAllTaken(t *testing.T) {
	open := SubtractTakenLabels(OpenHourLabels(), OpenHourLabels())
	assert.Empty(t, open)
}

func TestValidateSlotLabels(t *testing.T) {
	assert.NoError(t, ValidateSlotLabels("09:00", "10:00"))
}

func TestValidateSlotLabelsMissing(t *testing.T) {
	assert.ErrorIs(t, ValidateSlotLabels("", "10:00"), ErrMissingTimeLabel)
	assert.ErrorIs(t, ValidateSlotLabels("09:00", ""), ErrMissingTimeLabel)
	assert.ErrorIs(t, ValidateSlotLabels("", ""), ErrMissingTimeLabel)
}

func TestValidateSlotLabelsStartNotBeforeEnd(t *testing.T) {
	assert.ErrorIs(t, ValidateSlotLabels("10:00", "09:00"), ErrStartNotBeforeEnd)
	assert.ErrorIs(t, ValidateSlotLabels("10:00", "10:00"), ErrStartNotBeforeEnd)
}

func TestValidateSlotLabelsMalformed(t *testing.T) {
	assert.Error(t, ValidateSlotLabels("9am", "10:00"))
	assert.Error(t, ValidateSlotLabels("09:00", "later"))
}

func TestCombineDateLabelRoundTrip(t *testing.T) {
	day, err := ParseDate("2026-03-14")
	require.NoError(t, err)

	for _, label := range OpenHourLabels() {
		at, err := CombineDateLabel(day, label)
		require.NoError(t, err)

		assert.Equal(t, label, HourLabel(at))
		assert.Equal(t, time.UTC, at.Location())
		assert.Equal(t, day.Year(), at.Year())
		assert.Equal(t, day.Month(), at.Month())
		assert.Equal(t, day.Day(), at.Day())
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("14/03/2026")
	assert.Error(t, err)
}

func TestValidateSelection(t *testing.T) {
	slotID := uint(4)
	courseID := uint(9)

	assert.NoError(t, ValidateSelection(&slotID, nil))
	assert.NoError(t, ValidateSelection(nil, &courseID))
	assert.ErrorIs(t, ValidateSelection(nil, nil), ErrNoSelection)
	assert.ErrorIs(t, ValidateSelection(&slotID, &courseID), ErrDualSelection)
}
