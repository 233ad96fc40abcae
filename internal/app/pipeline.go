package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RunPipeline runs acquisition and every gesture evaluator until ctx is
// cancelled.
//
// Pipeline logic:
//  1. The acquirer polls the provider and publishes the closest body.
//  2. Each evaluator reads the latest snapshot at its own rate.
//  3. Events go through the recorder to the hub.
//
// The acquirer clears the snapshot on exit, so evaluators stop emitting
// before the hub closes.
func (a *App) RunPipeline(ctx context.Context) {
	a.logger.Info("pipeline started", zap.Bool("tracking", a.IsEnabled()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.acq.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.runner.Run(ctx)
	}()
	wg.Wait()

	a.logger.Info("pipeline stopped")
}
