// Package batch runs one watermark configuration across an ordered image
// collection, isolating per-image failures and aggregating success/failure
// counts.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"photomark/internal/engine"
	"photomark/internal/model"
)

// Source opens one source image by path/key.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Sink stores one rendered result under the derived output name.
type Sink interface {
	Write(ctx context.Context, name string, contentType string, size int64, r io.Reader) error
}

// Progress receives one event per processed item; err is nil on success.
// When Workers > 1 it may be called concurrently.
type Progress func(index int, filename string, err error)

// Exporter drives the render+composite+save chain for every image of a
// batch job. Each item is independent: a failed image is counted and the
// batch moves on.
type Exporter struct {
	Source Source
	Sink   Sink

	// Workers bounds the per-image parallelism; values below 2 keep the
	// original sequential, in-order behavior.
	Workers int

	// Mark optionally supplies a pre-decoded watermark image so the asset
	// is read once and shared read-only across all items.
	Mark image.Image
}

// Run exports every source of the job. Configuration-level problems (empty
// batch, undecodable watermark asset) abort before any per-image work; after
// that, only cancellation stops the loop early. The returned result carries
// the counts accumulated up to that point.
func (e *Exporter) Run(ctx context.Context, job *model.BatchJob, progress Progress) (model.BatchResult, error) {
	var res model.BatchResult

	if job.Sources.Len() == 0 {
		return res, model.ErrEmptyBatch
	}
	job.Spec.Normalize()
	job.Rule.Normalize()

	rend, err := e.newRenderer(job)
	if err != nil {
		return res, err
	}

	if e.Workers > 1 {
		return e.runParallel(ctx, rend, job, progress)
	}
	return e.runSequential(ctx, rend, job, progress)
}

func (e *Exporter) runSequential(ctx context.Context, rend *engine.Renderer, job *model.BatchJob, progress Progress) (model.BatchResult, error) {
	var res model.BatchResult

	for i, path := range job.Sources.Paths() {
		// Cancellation is coarse-grained: checked between items only.
		select {
		case <-ctx.Done():
			res.Aborted = true
			return res, ctx.Err()
		default:
		}

		err := e.processOne(ctx, rend, job, path)
		if err != nil {
			res.Failure++
			zlog.Logger.Error().Err(err).Str("source", path).Msg("Failed to export image")
		} else {
			res.Success++
		}
		if progress != nil {
			progress(i, filepath.Base(path), err)
		}
	}
	return res, nil
}

func (e *Exporter) runParallel(ctx context.Context, rend *engine.Renderer, job *model.BatchJob, progress Progress) (model.BatchResult, error) {
	var success, failure atomic.Int64
	var wg sync.WaitGroup

	type item struct {
		index int
		path  string
	}
	queue := make(chan item)

	for w := 0; w < e.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range queue {
				err := e.processOne(ctx, rend, job, it.path)
				if err != nil {
					failure.Add(1)
					zlog.Logger.Error().Err(err).Str("source", it.path).Msg("Failed to export image")
				} else {
					success.Add(1)
				}
				if progress != nil {
					progress(it.index, filepath.Base(it.path), err)
				}
			}
		}()
	}

	var aborted bool
feed:
	for i, path := range job.Sources.Paths() {
		select {
		case <-ctx.Done():
			aborted = true
			break feed
		case queue <- item{index: i, path: path}:
		}
	}
	close(queue)
	wg.Wait()

	res := model.BatchResult{
		Success: int(success.Load()),
		Failure: int(failure.Load()),
		Aborted: aborted,
	}
	if aborted {
		return res, ctx.Err()
	}
	return res, nil
}

func (e *Exporter) processOne(ctx context.Context, rend *engine.Renderer, job *model.BatchJob, path string) error {
	src, err := e.Source.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open source %q: %w", path, err)
	}
	defer closeFileFlow(src)

	base, err := imaging.Decode(src)
	if err != nil {
		return fmt.Errorf("decode source %q: %w", path, err)
	}

	bounds := base.Bounds()
	layer, err := rend.Layer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return fmt.Errorf("render watermark for %q: %w", path, err)
	}

	final := engine.Composite(base, layer)

	var buf bytes.Buffer
	if err := engine.Encode(&buf, final, job.Rule); err != nil {
		return fmt.Errorf("encode result for %q: %w", path, err)
	}

	name := job.Rule.OutputName(path)
	if err := e.Sink.Write(ctx, name, job.Rule.ContentType(), int64(buf.Len()), &buf); err != nil {
		return fmt.Errorf("write result %q: %w", name, err)
	}
	return nil
}

func (e *Exporter) newRenderer(job *model.BatchJob) (*engine.Renderer, error) {
	if e.Mark != nil {
		return engine.NewRendererWithMark(job.Spec, job.Rule.Clamp, e.Mark)
	}
	return engine.NewRenderer(job.Spec, job.Rule.Clamp)
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Exporter failed to close fileflow")
	}
}
