package game

import "math"

const (
	streakBonusStep = 100
	streakBonusCap  = 500
)

// speedScore computes the base points for a correct answer: full points at
// instant answers decaying linearly to half at the time limit.
// elapsedMs is clamped to [0, limitMs].
func speedScore(points int, elapsedMs, limitMs int64) int {
	if limitMs <= 0 {
		return points
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > limitMs {
		elapsedMs = limitMs
	}
	fraction := float64(elapsedMs) / float64(limitMs)
	return int(math.Round(float64(points) * (1 - 0.5*fraction)))
}

// streakBonus returns the bonus for the k-th consecutive correct answer:
// nothing for the first, then 100 per extra consecutive hit, capped at 500.
func streakBonus(streak int) int {
	if streak < 2 {
		return 0
	}
	bonus := streakBonusStep * (streak - 1)
	if bonus > streakBonusCap {
		return streakBonusCap
	}
	return bonus
}
