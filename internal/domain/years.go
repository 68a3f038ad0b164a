package domain

import "time"

// YearChoices lists years from EarliestYearMet through the current year in
// descending order, for the year_met select options.
func YearChoices(now time.Time) []int {
	current := now.Year()
	years := make([]int, 0, current-EarliestYearMet+1)
	for y := current; y >= EarliestYearMet; y-- {
		years = append(years, y)
	}
	return years
}
