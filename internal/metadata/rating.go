package metadata

import "math"

// Rating computes the arithmetic mean of scores rounded to one decimal
// (spec §3's "Aggregate rating"), or returns ok=false when there are no
// comments yet.
func Rating(comments []Comment) (value float64, ok bool) {
	if len(comments) == 0 {
		return 0, false
	}
	var sum int
	for _, c := range comments {
		sum += c.Score
	}
	mean := float64(sum) / float64(len(comments))
	return math.Round(mean*10) / 10, true
}
