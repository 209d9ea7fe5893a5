package services

import (
	"testing"

	"quest-reward-system/models"

	"github.com/stretchr/testify/require"
)

const statsWallet = "0xaabbccddeeff00112233445566778899aabbccdd"

func TestXPForNextLevel(t *testing.T) {
	require.Equal(t, int64(100), xpForNextLevel(1))
	require.Equal(t, int64(229), xpForNextLevel(2))
	// Clamped below level 1.
	require.Equal(t, int64(100), xpForNextLevel(0))
}

func TestDetermineRank(t *testing.T) {
	require.Equal(t, 1, determineRank(1))
	require.Equal(t, 1, determineRank(4))
	require.Equal(t, 2, determineRank(5))
	require.Equal(t, 3, determineRank(15))
	require.Equal(t, 5, determineRank(99))
}

func TestCreditQuestRewardIdempotent(t *testing.T) {
	svc := NewUserStatsService(openTestDB(t))

	credited, err := svc.CreditQuestReward(statsWallet, 1, 50, models.QuestTypeDaily, "", "0xtx")
	require.NoError(t, err)
	require.True(t, credited)

	// Replay for the same quest is a no-op.
	credited, err = svc.CreditQuestReward(statsWallet, 1, 50, models.QuestTypeDaily, "", "0xtx")
	require.NoError(t, err)
	require.False(t, credited)

	stats, err := svc.GetStats(statsWallet)
	require.NoError(t, err)
	require.Equal(t, int64(50), stats.TotalXP)
	require.Equal(t, int64(1), stats.CompletedQuests)
	require.Equal(t, int64(1), stats.DailyCompleted)
	require.Equal(t, 1, stats.Level)
}

func TestCreditQuestRewardLevelUp(t *testing.T) {
	svc := NewUserStatsService(openTestDB(t))

	// Level 2 requires 100*1 + xpForNextLevel(1) = 200 XP.
	_, err := svc.CreditQuestReward(statsWallet, 1, 100, models.QuestTypeWeekly, "", "")
	require.NoError(t, err)
	stats, err := svc.GetStats(statsWallet)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Level)
	require.Nil(t, stats.LastLevelUpAt)

	_, err = svc.CreditQuestReward(statsWallet, 2, 100, models.QuestTypeWeekly, "", "")
	require.NoError(t, err)
	stats, err = svc.GetStats(statsWallet)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Level)
	require.NotNil(t, stats.LastLevelUpAt)
	require.Equal(t, int64(2), stats.WeeklyCompleted)
	require.Equal(t, 1, stats.Rank)
}

func TestFirstQuestBadgeAwarded(t *testing.T) {
	db := openTestDB(t)
	svc := NewUserStatsService(db)
	require.NoError(t, NewBadgeService(db).SeedBadgeTypes())

	_, err := svc.CreditQuestReward(statsWallet, 1, 50, models.QuestTypeOther, "", "")
	require.NoError(t, err)

	badges, err := NewBadgeService(db).ListUserBadges(statsWallet)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	require.Equal(t, "FIRST_QUEST", badges[0]["code"])

	// A second quest does not re-award it.
	_, err = svc.CreditQuestReward(statsWallet, 2, 50, models.QuestTypeOther, "", "")
	require.NoError(t, err)
	badges, err = NewBadgeService(db).ListUserBadges(statsWallet)
	require.NoError(t, err)
	require.Len(t, badges, 1)
}

func TestGetRewardHistoryNewestFirst(t *testing.T) {
	svc := NewUserStatsService(openTestDB(t))

	for i := int64(1); i <= 3; i++ {
		_, err := svc.CreditQuestReward(statsWallet, i, 25*i, models.QuestTypeOther, "", "")
		require.NoError(t, err)
	}

	history, err := svc.GetRewardHistory(statsWallet, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, statsWallet, history[0].WalletAddress)
}

func TestGetLeaderboardOrdering(t *testing.T) {
	svc := NewUserStatsService(openTestDB(t))

	low := "0x1111111111111111111111111111111111111111"
	high := "0x2222222222222222222222222222222222222222"
	_, err := svc.CreditQuestReward(low, 1, 50, models.QuestTypeOther, "", "")
	require.NoError(t, err)
	_, err = svc.CreditQuestReward(high, 1, 100, models.QuestTypeOther, "", "")
	require.NoError(t, err)

	entries, err := svc.GetLeaderboard(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, high, entries[0].WalletAddress)
	require.Equal(t, low, entries[1].WalletAddress)
}
