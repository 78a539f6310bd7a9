package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/providers"
)

// ErrNoEntrySquad is returned for an entry that has not picked a squad yet.
var ErrNoEntrySquad = errors.New("entry has no squad yet")

// ErrEntryNotFound is returned when FPL does not know the entry id.
var ErrEntryNotFound = errors.New("entry not found")

const entryCacheTTL = 10 * time.Minute

// FPLSource is the subset of the FPL client the loader needs.
type FPLSource interface {
	FetchBootstrap(ctx context.Context) (*providers.BootstrapResponse, error)
	FetchFixtures(ctx context.Context) ([]providers.FixtureResponse, error)
	FetchEntry(ctx context.Context, entryID int) (*providers.EntryResponse, error)
	FetchEntryPicks(ctx context.Context, entryID, gameweek int) (*providers.PicksResponse, error)
}

// FPLLoader assembles player pool snapshots and manager squads from FPL.
type FPLLoader struct {
	source  FPLSource
	cache   Cache
	horizon int
	logger  *logrus.Logger
}

// NewFPLLoader creates a loader. cache may be nil.
func NewFPLLoader(source FPLSource, cache Cache, horizon int, logger *logrus.Logger) *FPLLoader {
	if horizon <= 0 {
		horizon = DefaultFixtureHorizon
	}
	return &FPLLoader{
		source:  source,
		cache:   cache,
		horizon: horizon,
		logger:  logger,
	}
}

// Load fetches players and fixtures and builds a snapshot with upcoming
// difficulty attached to every player.
func (l *FPLLoader) Load(ctx context.Context) (*PoolSnapshot, error) {
	var (
		bootstrap *providers.BootstrapResponse
		fixtures  []providers.FixtureResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bootstrap, err = l.source.FetchBootstrap(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fixtures, err = l.source.FetchFixtures(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	players, skipped := bootstrap.Players()
	gameweek := bootstrap.CurrentGameweek()
	difficulty := ComputeFixtureDifficulty(providers.Fixtures(fixtures), gameweek, l.horizon)
	AttachDifficulty(players, difficulty)

	l.logger.WithFields(logrus.Fields{
		"players":  len(players),
		"skipped":  skipped,
		"fixtures": len(fixtures),
		"gameweek": gameweek,
	}).Debug("Built player pool snapshot")

	return &PoolSnapshot{
		Players:    players,
		Clubs:      bootstrap.Clubs(),
		Gameweek:   gameweek,
		Difficulty: difficulty,
		FetchedAt:  time.Now(),
	}, nil
}

// FetchEntrySquad loads a manager's squad from their latest picks.
func (l *FPLLoader) FetchEntrySquad(ctx context.Context, entryID int) (*models.EntrySquad, error) {
	entry, err := l.source.FetchEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, entryID)
		}
		return nil, err
	}
	if entry.CurrentEvent == nil || *entry.CurrentEvent <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoEntrySquad, entryID)
	}
	gameweek := *entry.CurrentEvent

	if l.cache != nil {
		var cached models.EntrySquad
		if err := l.cache.Get(ctx, EntryCacheKey(entryID, gameweek), &cached); err == nil {
			return &cached, nil
		}
	}

	picks, err := l.source.FetchEntryPicks(ctx, entryID, gameweek)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNoEntrySquad, entryID)
		}
		return nil, err
	}

	squad := entrySquad(entry, picks, gameweek)
	if l.cache != nil {
		if err := l.cache.Set(ctx, EntryCacheKey(entryID, gameweek), squad, entryCacheTTL); err != nil {
			l.logger.WithError(err).WithField("entry_id", entryID).Warn("Failed to cache entry squad")
		}
	}
	return squad, nil
}

func entrySquad(entry *providers.EntryResponse, picks *providers.PicksResponse, gameweek int) *models.EntrySquad {
	ordered := append([]providers.PickResponse(nil), picks.Picks...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	squad := &models.EntrySquad{
		EntryID:     entry.ID,
		ManagerName: strings.TrimSpace(entry.PlayerFirstName + " " + entry.PlayerLastName),
		TeamName:    entry.Name,
		Gameweek:    gameweek,
		PlayerIDs:   make([]int, 0, len(ordered)),
		Bank:        models.Price(picks.EntryHistory.Bank),
	}
	for _, p := range ordered {
		squad.PlayerIDs = append(squad.PlayerIDs, p.Element)
		if p.IsCaptain {
			squad.CaptainID = p.Element
		}
		if p.IsViceCaptain {
			squad.ViceCaptainID = p.Element
		}
	}
	return squad
}
