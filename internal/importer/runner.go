package importer

import (
	"context"
	"runtime"
)

// TaskRunner abstracts how the batch loop is scheduled. The async runner
// spawns a goroutine and yields the processor between batches so a long
// import never starves the rest of the server; the sync runner executes
// inline for deterministic tests.
type TaskRunner interface {
	Go(task func())
	// YieldBatch is called between batches; a non-nil error stops the import
	// at the batch boundary.
	YieldBatch(ctx context.Context) error
}

type AsyncRunner struct{}

func (AsyncRunner) Go(task func()) { go task() }

func (AsyncRunner) YieldBatch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	return nil
}

type SyncRunner struct{}

func (SyncRunner) Go(task func()) { task() }

func (SyncRunner) YieldBatch(ctx context.Context) error { return ctx.Err() }
