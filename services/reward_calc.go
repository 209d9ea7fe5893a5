package services

import (
	"math"
	"strconv"

	"quest-reward-system/models"
)

// CalculateXPReward derives the XP credit from quest attributes. Pure and
// total: a nil quest (mirror row missing) earns the default 100.
func CalculateXPReward(quest *models.Quest) int64 {
	if quest == nil {
		return 100
	}

	// Weekly quests (badge level >= 2) earn higher XP
	if quest.QuestType == models.QuestTypeWeekly || quest.BadgeLevel >= 2 {
		return 100
	}

	if quest.QuestType == models.QuestTypeDaily || quest.BadgeLevel == 1 {
		return 50
	}

	if quest.RewardPerParticipant != "" {
		// ParseFloat accepts "NaN" and "Inf"; those are not usable amounts.
		reward, err := strconv.ParseFloat(quest.RewardPerParticipant, 64)
		if err == nil && !math.IsNaN(reward) && !math.IsInf(reward, 0) {
			return max(25, int64(math.Round(reward/2)))
		}
	}

	return 75
}
