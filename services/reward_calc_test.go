package services

import (
	"testing"

	"quest-reward-system/models"

	"github.com/stretchr/testify/require"
)

func TestCalculateXPReward(t *testing.T) {
	tests := []struct {
		name  string
		quest *models.Quest
		want  int64
	}{
		{
			name:  "nil quest defaults to 100",
			quest: nil,
			want:  100,
		},
		{
			name:  "weekly quest earns 100",
			quest: &models.Quest{QuestType: models.QuestTypeWeekly},
			want:  100,
		},
		{
			name:  "badge level 2 earns 100 regardless of type",
			quest: &models.Quest{QuestType: models.QuestTypeOther, BadgeLevel: 2},
			want:  100,
		},
		{
			name:  "badge level 3 earns 100",
			quest: &models.Quest{BadgeLevel: 3},
			want:  100,
		},
		{
			name:  "daily quest earns 50",
			quest: &models.Quest{QuestType: models.QuestTypeDaily},
			want:  50,
		},
		{
			name:  "badge level 1 earns 50",
			quest: &models.Quest{QuestType: models.QuestTypeOther, BadgeLevel: 1},
			want:  50,
		},
		{
			name:  "reward 200 halves to 100",
			quest: &models.Quest{QuestType: models.QuestTypeOther, RewardPerParticipant: "200"},
			want:  100,
		},
		{
			name:  "tiny reward floors at 25",
			quest: &models.Quest{QuestType: models.QuestTypeOther, RewardPerParticipant: "10"},
			want:  25,
		},
		{
			name:  "reward 151 rounds to 76",
			quest: &models.Quest{QuestType: models.QuestTypeOther, RewardPerParticipant: "151"},
			want:  76,
		},
		{
			name:  "unparseable reward falls back to 75",
			quest: &models.Quest{QuestType: models.QuestTypeOther, RewardPerParticipant: "lots"},
			want:  75,
		},
		{
			name:  "NaN reward falls back to 75",
			quest: &models.Quest{QuestType: models.QuestTypeOther, RewardPerParticipant: "NaN"},
			want:  75,
		},
		{
			name:  "infinite reward falls back to 75",
			quest: &models.Quest{QuestType: models.QuestTypeOther, RewardPerParticipant: "+Inf"},
			want:  75,
		},
		{
			name:  "no reward metadata falls back to 75",
			quest: &models.Quest{QuestType: models.QuestTypeOther},
			want:  75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CalculateXPReward(tt.quest))
		})
	}
}
