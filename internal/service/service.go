// Package service provides business-logic for the app
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"

	"photomark/internal/model"
	"photomark/internal/mwlogger"
	"photomark/internal/repository"
)

type JobService struct {
	repo            repository.JobRepo
	templates       repository.TemplateRepo
	publisher       TaskPublisher
	storage         FileStorage
	srcKeyPrefix    string
	markKeyPrefix   string
	resultKeyPrefix string
}

func NewJobService(jobRep repository.JobRepo, tplRep repository.TemplateRepo, pub TaskPublisher, strg FileStorage) *JobService {
	return &JobService{
		repo:            jobRep,
		templates:       tplRep,
		publisher:       pub,
		storage:         strg,
		srcKeyPrefix:    "sources/",
		markKeyPrefix:   "marks/",
		resultKeyPrefix: "results/",
	}
}

// TaskPublisher is the task-queue contract.
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// FileStorage is the object-storage contract.
type FileStorage interface {
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Queue-publish retry strategy; values could move to config/env later.
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// Create validates the watermark configuration, stores the uploaded sources
// (and the watermark asset for the image variant), persists the job record
// and enqueues its UID for a worker to pick up.
func (c JobService) Create(ctx context.Context, jobData *model.JobCreateData) (*model.Job, error) {
	logger := mwlogger.FromContext(ctx)
	newJob := &model.Job{}

	if err := validateNormalizeJobInfo(jobData, newJob); err != nil {
		return nil, err
	}

	newJob.UID = uuid.New()

	// Store every uploaded source; duplicate filenames are silently skipped
	// so the batch never processes the same image twice.
	var sources model.PathList
	for _, f := range jobData.Sources {
		key := c.srcKeyPrefix + newJob.UID.String() + "/" + filepath.Base(f.Name)
		if !sources.Add(key) {
			continue
		}
		if err := c.storage.Put(ctx, key, f.Size, f.ContentType, f.File); err != nil {
			logger.Error().Err(err).Msg("Failed to save src-image in Storage")
			return nil, model.ErrCommon500
		}
	}
	newJob.SourceKeys = sources.Paths()

	// The watermark asset goes to storage too, and its key becomes the
	// spec's source path so the worker can open it like any other object.
	if newJob.Spec.Variant == model.VariantImage {
		markKey := c.markKeyPrefix + newJob.UID.String() + model.GetImageFileExt[jobData.MarkCType]

		if err := c.storage.Put(ctx, markKey, jobData.MarkSize, jobData.MarkCType, jobData.MarkImg); err != nil {
			logger.Error().Err(err).Msg("Failed to save watermark asset in Storage")
			return nil, model.ErrCommon500
		}
		newJob.Spec.Image.SourcePath = markKey
	}

	newJob.Status = model.StatusCreated
	now := time.Now().UTC()
	newJob.CreatedAt = &now

	if err := c.repo.Create(ctx, newJob); err != nil {
		logger.Error().Err(err).Msg("Failed to create job in DB")
		return nil, model.ErrCommon500
	}

	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newJob.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish job %q to task-queue", newJob.UID))
		return nil, model.ErrCommon500
	}
	return newJob, nil
}

func (c JobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	logger := mwlogger.FromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch jobs list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	logger := mwlogger.FromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return nil, model.ErrJobNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
			return nil, model.ErrCommon500
		}
	}

	return res, nil
}

// LoadResult streams one rendered file of a finished job.
func (c JobService) LoadResult(ctx context.Context, id string, filename string) (io.ReadCloser, string, error) {
	logger := mwlogger.FromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, "", model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return nil, "", model.ErrJobNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
			return nil, "", model.ErrCommon500
		}
	}
	if res.Status != model.StatusDone {
		return nil, "", model.ErrResultNotReady
	}

	key := c.resultKeyPrefix + id + "/" + filepath.Base(filename)
	data, cType, err := c.storage.Get(ctx, key)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch result-file %q from Storage", key))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

func (c JobService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.FromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound), errors.Is(err, sql.ErrNoRows):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
			return model.ErrCommon500
		}
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msg("Failed to delete job from DB")
		return model.ErrCommon500
	}

	// Sources and results are keyed under the job UID, so one prefix sweep
	// each removes everything the job ever stored.
	if err := c.storage.DeletePrefix(ctx, c.srcKeyPrefix+id+"/"); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-images from Storage")
		return model.ErrCommon500
	}
	if err := c.storage.DeletePrefix(ctx, c.resultKeyPrefix+id+"/"); err != nil {
		logger.Error().Err(err).Msg("Failed to delete result-images from Storage")
		return model.ErrCommon500
	}
	if res.Spec.Variant == model.VariantImage && res.Spec.Image != nil {
		if err := c.storage.Delete(ctx, res.Spec.Image.SourcePath); err != nil {
			logger.Error().Err(err).Msg("Failed to delete watermark asset from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c JobService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	logger := mwlogger.FromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update job status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c JobService) SaveResult(ctx context.Context, input *model.Job) error {
	logger := mwlogger.FromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save job result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// ReviveOrphans re-enqueues jobs that got stuck between DB insert and queue
// ack, or whose worker died mid-batch.
func (c JobService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.FromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
}
