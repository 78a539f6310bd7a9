package handlers

import (
	"context"
	"time"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/internal/services"
	"github.com/Kevocado/FPL-Optimizer/pkg/utils"
)

// PoolSource serves player pool snapshots.
type PoolSource interface {
	Snapshot(ctx context.Context) (*services.PoolSnapshot, error)
	Stale(snap *services.PoolSnapshot) bool
	Status() services.PoolStatus
}

// EntrySource resolves an FPL entry to its current squad.
type EntrySource interface {
	FetchEntrySquad(ctx context.Context, entryID int) (*models.EntrySquad, error)
}

func snapshotMeta(pool PoolSource, snap *services.PoolSnapshot, started time.Time) *utils.Meta {
	return &utils.Meta{
		SnapshotAt: snap.FetchedAt.UTC().Format(time.RFC3339),
		Gameweek:   snap.Gameweek,
		Stale:      pool.Stale(snap),
		DurationMS: time.Since(started).Milliseconds(),
	}
}
