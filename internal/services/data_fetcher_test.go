package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/pkg/logger"
)

type countingRefresher struct {
	calls int32
}

func (r *countingRefresher) Refresh(context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	return nil
}

func TestDataFetcherStartStop(t *testing.T) {
	refresher := &countingRefresher{}
	fetcher := NewDataFetcherService(refresher, logger.NewDiscardLogger(), time.Hour)

	require.NoError(t, fetcher.Start())
	assert.True(t, fetcher.IsRunning())
	assert.Error(t, fetcher.Start(), "second start is rejected")

	require.Eventually(t, func() bool { return atomic.LoadInt32(&refresher.calls) >= 1 }, time.Second, 5*time.Millisecond)

	fetcher.Stop()
	assert.False(t, fetcher.IsRunning())
	fetcher.Stop()
}

func TestDataFetcherRejectsInvalidInterval(t *testing.T) {
	fetcher := NewDataFetcherService(&countingRefresher{}, logger.NewDiscardLogger(), 0)
	assert.Error(t, fetcher.Start())
	assert.False(t, fetcher.IsRunning())
}
