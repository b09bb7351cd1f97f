package stats

// CurrentStreak counts consecutive days ending today or yesterday.
// days must be ascending and distinct, as returned by Normalize.
//
// The latest entry is the anchor. If it is neither today nor yesterday (older,
// or a future completion) the streak is 0.
func CurrentStreak(days []Day, today Day) int {
	if len(days) == 0 {
		return 0
	}

	last := len(days) - 1
	yesterday := today.AddDays(-1)
	if days[last] != today && days[last] != yesterday {
		return 0
	}

	streak := 1
	earliest := days[last]
	for j := last - 1; j >= 0; j-- {
		if days[j] != earliest.AddDays(-1) {
			break
		}
		streak++
		earliest = days[j]
	}

	return streak
}
