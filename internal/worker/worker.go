// Package worker contains methods for worker to init at start, and to process watermark jobs
package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"

	"github.com/disintegration/imaging"
	kafkago "github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"

	"photomark/internal/batch"
	"photomark/internal/model"
	"photomark/internal/service"
)

type JobWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
}

type Worker struct {
	storage      service.FileStorage
	service      JobWorkerService
	queue        <-chan kafkago.Message
	consumer     *wbfkafka.Consumer
	resultPrefix string
	// renderWorkers bounds per-image parallelism inside one job
	renderWorkers int
}

func NewWorkerInstance(strg service.FileStorage, svc JobWorkerService, q <-chan kafkago.Message, cons *wbfkafka.Consumer, resPr string, renderWorkers int) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons, resultPrefix: resPr, renderWorkers: renderWorkers}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
				log.Printf("Job %s failed: %v", id, err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	job, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch job %q from DB: %w", id, err)
	}

	// Terminal states only get re-enqueued by a delete/create race or a
	// duplicated queue message; both are safe to acknowledge.
	switch job.Status {
	case model.StatusDone, model.StatusFailed, model.StatusAborted:
		return nil
	}

	if err := w.service.UpdateStatus(ctx, id, model.StatusRunning); err != nil {
		return fmt.Errorf("failed to update status of job %q to `running` in DB: %w", id, err)
	}

	if pErr := w.processJob(ctx, job); pErr != nil {
		if uErr := w.service.UpdateStatus(ctx, id, model.StatusFailed); uErr != nil {
			return fmt.Errorf("failed to set status of job %q to `failed` in DB: %w \nAFTER\n error while processing job: %w", id, uErr, pErr)
		}
		return fmt.Errorf("failed to process job %q: %w", id, pErr)
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job *model.Job) error {
	batchJob := &model.BatchJob{
		Spec: job.Spec,
		Rule: job.Rule,
	}
	for _, key := range job.SourceKeys {
		batchJob.Sources.Add(key)
	}

	// The image-variant asset is decoded once up front and shared read-only
	// by every render of the batch.
	var mark image.Image
	if job.Spec.Variant == model.VariantImage && job.Spec.Image != nil {
		rc, _, err := w.storage.Get(ctx, job.Spec.Image.SourcePath)
		if err != nil {
			return fmt.Errorf("worker failed to fetch watermark asset from storage: %w", err)
		}
		mark, err = imaging.Decode(rc)
		closeFileFlow(rc)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrAssetDecode, err)
		}
	}

	sink := &storageSink{storage: w.storage, prefix: w.resultPrefix + job.UID.String() + "/"}

	exporter := batch.Exporter{
		Source:  storageSource{storage: w.storage},
		Sink:    sink,
		Workers: w.renderWorkers,
		Mark:    mark,
	}

	var mu sync.Mutex
	var errMsgs model.StringSlice
	progress := func(index int, filename string, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errMsgs = append(errMsgs, fmt.Sprintf("%s: %v", filename, err))
		mu.Unlock()
	}

	res, runErr := exporter.Run(ctx, batchJob, progress)

	job.Success = res.Success
	job.Failure = res.Failure
	job.ResultKeys = sink.keys
	job.ErrMsg = errMsgs

	saveCtx := ctx
	switch {
	case res.Aborted:
		job.Status = model.StatusAborted
		// ctx is already cancelled here, the final DB write still has to land.
		saveCtx = context.WithoutCancel(ctx)
	case runErr != nil:
		// Configuration-level failure before any image got processed.
		return runErr
	case res.Success == 0:
		job.Status = model.StatusFailed
	default:
		job.Status = model.StatusDone
	}

	if err := w.service.SaveResult(saveCtx, job); err != nil {
		return fmt.Errorf("worker failed to save job result to DB: %w", err)
	}
	return nil
}

// storageSource adapts object storage to the exporter's read side.
type storageSource struct {
	storage service.FileStorage
}

func (s storageSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, _, err := s.storage.Get(ctx, path)
	return rc, err
}

// storageSink writes results under the job's result prefix and remembers
// every key it stored.
type storageSink struct {
	storage service.FileStorage
	prefix  string

	mu   sync.Mutex
	keys model.StringSlice
}

func (s *storageSink) Write(ctx context.Context, name, contentType string, size int64, r io.Reader) error {
	key := s.prefix + name
	if err := s.storage.Put(ctx, key, size, contentType, r); err != nil {
		return err
	}
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
