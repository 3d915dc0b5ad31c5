package domain

// Scoring constants shared by solo sessions and the match coordinator.
// Keeping one implementation for both keeps leaderboards comparable.
const (
	BasePoints          = 100
	SpeedBonusPerSecond = 10
	StreakBonus         = 20
)

// Score maps one answer outcome to awarded points and the new streak.
// An incorrect or timed-out answer awards nothing and resets the streak.
func Score(correct bool, timeLeftSeconds, streak int) (points, newStreak int) {
	if !correct {
		return 0, 0
	}
	if timeLeftSeconds < 0 {
		timeLeftSeconds = 0
	}
	return BasePoints + SpeedBonusPerSecond*timeLeftSeconds + StreakBonus*streak, streak + 1
}
