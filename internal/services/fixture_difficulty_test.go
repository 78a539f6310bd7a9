package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

func fixture(gw, home, away, hd, ad int, finished bool) models.Fixture {
	return models.Fixture{Gameweek: &gw, HomeClubID: home, AwayClubID: away, HomeDifficulty: hd, AwayDifficulty: ad, Finished: finished}
}

func TestComputeFixtureDifficulty(t *testing.T) {
	fixtures := []models.Fixture{
		fixture(4, 1, 2, 2, 4, true), // finished, ignored
		fixture(5, 1, 2, 2, 4, false),
		fixture(6, 3, 1, 3, 5, false),
		fixture(6, 1, 4, 3, 3, false), // double gameweek for club 1
		fixture(8, 2, 1, 4, 2, false),
		fixture(10, 1, 3, 2, 2, false),                                       // outside the horizon
		{HomeClubID: 1, AwayClubID: 2, HomeDifficulty: 5, AwayDifficulty: 5}, // unscheduled
	}

	fd := ComputeFixtureDifficulty(fixtures, 5, 5)

	club1 := fd[1]
	assert.Equal(t, map[int]float64{5: 2, 6: 4, 8: 2}, club1.ByGameweek)
	assert.Equal(t, []float64{2, 4, 2}, club1.Sequence)
	require.NotNil(t, club1.Average)
	assert.InDelta(t, 8.0/3, *club1.Average, 1e-9)

	club2 := fd[2]
	assert.Equal(t, []float64{4, 4}, club2.Sequence)

	_, ok := fd[4]
	assert.True(t, ok)
	_, ok = fd[7]
	assert.False(t, ok)
}

func TestComputeFixtureDifficultyDefaultHorizon(t *testing.T) {
	fixtures := []models.Fixture{
		fixture(1, 1, 2, 2, 3, false),
		fixture(5, 1, 2, 2, 3, false),
		fixture(6, 1, 2, 5, 5, false),
	}
	fd := ComputeFixtureDifficulty(fixtures, 1, 0)
	assert.Equal(t, []float64{2, 2}, fd[1].Sequence)
}

func TestAttachDifficulty(t *testing.T) {
	players := []models.Player{
		{ID: 1, ClubID: 1, UpcomingDifficulty: []float64{9}},
		{ID: 2, ClubID: 2},
	}
	avg := 3.0
	fd := models.FixtureDifficulty{1: {ClubID: 1, Sequence: []float64{2, 4}, Average: &avg}}

	AttachDifficulty(players, fd)
	assert.Equal(t, []float64{2, 4}, players[0].UpcomingDifficulty)
	assert.Nil(t, players[1].UpcomingDifficulty)

	players[0].UpcomingDifficulty[0] = 7
	assert.Equal(t, 2.0, fd[1].Sequence[0], "players get their own copy")
}
