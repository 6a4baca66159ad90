package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettings_NormalizeClampsDurations(t *testing.T) {
	s := Settings{KillerDurationS: 10, DoctorDurationS: 1000, VotingDurationS: 200, DiscussionDurationS: -5}

	s.Normalize()

	require.Equal(t, MinPhaseDurationS, s.KillerDurationS)
	require.Equal(t, MaxPhaseDurationS, s.DoctorDurationS)
	require.Equal(t, 200, s.VotingDurationS)
	require.Equal(t, MinPhaseDurationS, s.DiscussionDurationS)
}

func TestSettings_NormalizeFloorsCounts(t *testing.T) {
	s := Settings{KillerCount: -1, DoctorCount: -3, DetectiveCount: 2}

	s.Normalize()

	require.Equal(t, 0, s.KillerCount)
	require.Equal(t, 0, s.DoctorCount)
	require.Equal(t, 2, s.DetectiveCount)
}

func TestSettings_NoDurationDecreased(t *testing.T) {
	s := DefaultSettings()
	higher := s
	higher.KillerDurationS = s.KillerDurationS + 10

	require.True(t, s.NoDurationDecreased(higher))

	lower := s
	lower.VotingDurationS = s.VotingDurationS - 1

	require.False(t, s.NoDurationDecreased(lower))
}
