package main

import (
	"context"

	"github.com/wb-go/wbf/retry"

	"photomark/internal/model"
)

type JobWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
}

// NoopPublisher stands in for the queue producer: the worker consumes jobs,
// it never publishes them.
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
