// ABOUTME: Consecutive-day workout streak computation.
// ABOUTME: Streaks are measured on local calendar days.
package models

import (
	"sort"
	"time"
)

// day truncates t to its calendar date in loc.
func day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func distinctDays(times []time.Time, loc *time.Location) []time.Time {
	seen := make(map[time.Time]bool, len(times))
	var days []time.Time
	for _, t := range times {
		d := day(t, loc)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// CurrentStreak returns the length of the run of consecutive days ending
// today or yesterday. A gap of two or more days breaks the run.
func CurrentStreak(times []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	days := distinctDays(times, loc)
	if len(days) == 0 {
		return 0
	}
	yesterday := day(now, loc).AddDate(0, 0, -1)
	if days[0].Before(yesterday) {
		return 0
	}
	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			streak++
			continue
		}
		break
	}
	return streak
}

// LongestStreak returns the longest run of consecutive days.
func LongestStreak(times []time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	days := distinctDays(times, loc)
	if len(days) == 0 {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
