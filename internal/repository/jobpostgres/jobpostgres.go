package jobpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/wb-go/wbf/dbpg"

	"photomark/internal/model"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, j *model.Job) error {
	query := `INSERT INTO jobs (job_uid, spec, rule, source_keys, result_keys, status, success_count, failure_count, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	return p.DB.QueryRowContext(ctx, query, j.UID, j.Spec, j.Rule, j.SourceKeys, j.ResultKeys, j.Status, j.Success, j.Failure, j.ErrMsg, j.CreatedAt, j.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	query := `SELECT job_uid, spec, rule, source_keys, result_keys, status, success_count, failure_count, err_msg, created_at, updated_at
	FROM jobs
	WHERE job_uid = $1`
	var job model.Job

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&job.UID,
		&job.Spec,
		&job.Rule,
		&job.SourceKeys,
		&job.ResultKeys,
		&job.Status,
		&job.Success,
		&job.Failure,
		&job.ErrMsg,
		&job.CreatedAt,
		&job.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrJobNotFound
		default:
			return nil, err // 500
		}
	}
	return &job, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	query := fmt.Sprintf(`SELECT job_uid, status, success_count, failure_count, err_msg, created_at, updated_at
	FROM jobs
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	jobs := make([]model.Job, 0, req.Limit)
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.UID,
			&job.Status,
			&job.Success,
			&job.Failure,
			&job.ErrMsg,
			&job.CreatedAt,
			&job.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return jobs, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM jobs
	WHERE job_uid = $1`

	res, err := p.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err // 500
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err // 500
	}
	if affected == 0 {
		return model.ErrJobNotFound // 404
	}
	return nil
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE jobs SET status = $1, updated_at = now() WHERE job_uid = $2`

	res, err := p.DB.ExecContext(ctx, query, newStat, id)
	if err != nil {
		return err // 500
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err // 500
	}
	if affected == 0 {
		return model.ErrJobNotFound // 404
	}
	return nil
}

func (p PostgresRepo) SaveResult(ctx context.Context, j *model.Job) error {
	query := `UPDATE jobs SET status = $1, success_count = $2, failure_count = $3, result_keys = $4, err_msg = $5, updated_at = $6 WHERE job_uid = $7`

	res, err := p.DB.ExecContext(ctx, query, j.Status, j.Success, j.Failure, j.ResultKeys, j.ErrMsg, j.UpdatedAt, j.UID)
	if err != nil {
		return err // 500
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err // 500
	}
	if affected == 0 {
		return model.ErrJobNotFound // 404
	}
	return nil
}

// FetchOrphans returns jobs stuck in a non-terminal state, so a worker can
// pick them up again after a crash between the DB insert and the broker ack.
func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT job_uid
	FROM jobs
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '10 minutes'
	LIMIT $3`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusRunning, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}
