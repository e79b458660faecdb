package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := Parse(s)
	require.NoError(t, err)
	return d
}

func TestWorkingDays(t *testing.T) {
	weekend := []int{6, 7}

	// Test case 1: full week, weekend off
	start := mustParse(t, "2025-01-06") // Monday
	end := mustParse(t, "2025-01-12")   // Sunday
	require.Equal(t, 5, WorkingDays(start, end, weekend))

	// Test case 2: single working day
	require.Equal(t, 1, WorkingDays(start, start, weekend))

	// Test case 3: span entirely on days off
	sat := mustParse(t, "2025-01-11")
	sun := mustParse(t, "2025-01-12")
	require.Equal(t, 0, WorkingDays(sat, sun, weekend))

	// Test case 4: no days off at all
	require.Equal(t, 7, WorkingDays(start, end, nil))
}

func TestNextWorkingDay(t *testing.T) {
	weekend := []int{6, 7}

	// Test case 1: already a working day
	mon := mustParse(t, "2025-01-06")
	got, ok := NextWorkingDay(mon, weekend)
	require.True(t, ok)
	require.Equal(t, mon, got)

	// Test case 2: Saturday rolls to Monday
	sat := mustParse(t, "2025-01-04")
	got, ok = NextWorkingDay(sat, weekend)
	require.True(t, ok)
	require.Equal(t, mon, got)

	// Test case 3: every weekday off
	_, ok = NextWorkingDay(mon, []int{1, 2, 3, 4, 5, 6, 7})
	require.False(t, ok)
}

func TestAdvanceWorkingDays(t *testing.T) {
	weekend := []int{6, 7}
	fri := mustParse(t, "2025-01-10")

	// Test case 1: zero working days is a no-op
	got, ok := AdvanceWorkingDays(fri, 0, weekend)
	require.True(t, ok)
	require.Equal(t, fri, got)

	// Test case 2: the first working day is the start itself
	got, ok = AdvanceWorkingDays(fri, 1, weekend)
	require.True(t, ok)
	require.Equal(t, fri, got)

	// Test case 3: the second working day skips the weekend
	got, ok = AdvanceWorkingDays(fri, 2, weekend)
	require.True(t, ok)
	require.Equal(t, mustParse(t, "2025-01-13"), got)

	// Test case 4: no working days at all
	_, ok = AdvanceWorkingDays(fri, 3, []int{1, 2, 3, 4, 5, 6, 7})
	require.False(t, ok)
}

func TestEndAfterWorkingDays(t *testing.T) {
	weekend := []int{6, 7}

	// Test case 1: five working days starting Friday end the next Thursday
	fri := mustParse(t, "2025-01-10")
	end, ok := EndAfterWorkingDays(fri, 5, weekend)
	require.True(t, ok)
	require.Equal(t, mustParse(t, "2025-01-16"), end)
	require.Equal(t, 7, int(end.Sub(fri).Hours()/24)+1)

	// Test case 2: one-day task ends the day it starts
	end, ok = EndAfterWorkingDays(fri, 1, weekend)
	require.True(t, ok)
	require.Equal(t, fri, end)

	// Test case 3: all days off
	_, ok = EndAfterWorkingDays(fri, 2, []int{1, 2, 3, 4, 5, 6, 7})
	require.False(t, ok)
}

func TestFindWindow(t *testing.T) {
	weekend := []int{6, 7}

	// Test case 1: a 3-day window starting Thursday cannot cross the
	// weekend and lands on Monday
	thu := mustParse(t, "2025-01-09")
	window, ok := FindWindow(weekend, thu, 3)
	require.True(t, ok)
	require.Equal(t, mustParse(t, "2025-01-13"), window.Start)
	require.Equal(t, mustParse(t, "2025-01-15"), window.End)

	// Test case 2: a window that fits immediately stays put
	window, ok = FindWindow(weekend, thu, 2)
	require.True(t, ok)
	require.Equal(t, thu, window.Start)
	require.Equal(t, mustParse(t, "2025-01-10"), window.End)

	// Test case 3: a 6-day consecutive span never fits a 5-day week
	_, ok = FindWindow(weekend, thu, 6)
	require.False(t, ok)

	// Test case 4: non-positive duration
	_, ok = FindWindow(weekend, thu, 0)
	require.False(t, ok)
}
