package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageTicketScenario(t *testing.T) {
	revenue := totalsOf(t, map[CalendarDay]string{"2025-02-01": "170"})
	attendance := totalsOf(t, map[CalendarDay]string{"2025-02-01": "10"})

	got := AverageTicket(revenue, attendance)
	require.Len(t, got, 1)
	assert.Equal(t, CalendarDay("2025-02-01"), got[0].Date)
	assert.Equal(t, 17.0, got[0].Value)
}

func TestAverageTicketExcludesMissingAttendance(t *testing.T) {
	revenue := totalsOf(t, map[CalendarDay]string{"2025-02-01": "170"})

	got := AverageTicket(revenue, DailyTotals{})
	assert.Empty(t, got)
}

func TestAverageTicketExclusionLaw(t *testing.T) {
	revenue := totalsOf(t, map[CalendarDay]string{
		"2025-02-01": "170",
		"2025-02-02": "99.90",
		"2025-02-03": "1000",
		"2025-02-04": "250",
		"2025-02-05": "12.34",
	})
	attendance := totalsOf(t, map[CalendarDay]string{
		"2025-02-01": "10",
		"2025-02-02": "3",
		"2025-02-03": "0",
		"2025-02-04": "-2",
		"2025-02-06": "40",
	})

	got := AverageTicket(revenue, attendance)
	byDay := make(map[CalendarDay]float64, len(got))
	for _, p := range got {
		byDay[p.Date] = p.Value
	}

	for day, amount := range revenue {
		people, present := attendance[day]
		value, emitted := byDay[day]
		if !present || !people.IsPositive() {
			assert.False(t, emitted, "day %s must be excluded", day)
			continue
		}
		require.True(t, emitted, "day %s must be present", day)
		assert.Equal(t, amount.InexactFloat64()/people.InexactFloat64(), value, "day %s", day)
	}
	_, ok := byDay["2025-02-06"]
	assert.False(t, ok, "attendance-only day must not be emitted")
}

func TestAverageTicketIsSorted(t *testing.T) {
	revenue := totalsOf(t, map[CalendarDay]string{"2025-02-03": "30", "2025-02-01": "10"})
	attendance := totalsOf(t, map[CalendarDay]string{"2025-02-03": "3", "2025-02-01": "1"})

	got := AverageTicket(revenue, attendance)
	require.Len(t, got, 2)
	assert.Equal(t, CalendarDay("2025-02-01"), got[0].Date)
	assert.Equal(t, CalendarDay("2025-02-03"), got[1].Date)
}
