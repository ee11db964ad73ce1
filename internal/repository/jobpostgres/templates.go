package jobpostgres

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/wb-go/wbf/dbpg"

	"photomark/internal/model"
)

type TemplateRepo struct {
	DB *dbpg.DB
}

// Save upserts by name: saving an existing template overwrites its spec.
func (t TemplateRepo) Save(ctx context.Context, tpl *model.Template) error {
	query := `INSERT INTO templates (name, spec, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (name) DO UPDATE SET spec = EXCLUDED.spec, updated_at = now()`
	_, err := t.DB.ExecContext(ctx, query, tpl.Name, tpl.Spec)
	return err
}

func (t TemplateRepo) Get(ctx context.Context, name string) (*model.Template, error) {
	query := `SELECT name, spec, updated_at
	FROM templates
	WHERE name = $1`
	var tpl model.Template

	err := t.DB.QueryRowContext(ctx, query, name).Scan(&tpl.Name, &tpl.Spec, &tpl.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrTemplateNotFound
		default:
			return nil, err // 500
		}
	}
	return &tpl, nil
}

func (t TemplateRepo) GetList(ctx context.Context) ([]model.Template, error) {
	query := `SELECT name, spec, updated_at
	FROM templates
	ORDER BY name ASC`

	rows, err := t.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	var templates []model.Template
	for rows.Next() {
		var tpl model.Template
		if err := rows.Scan(&tpl.Name, &tpl.Spec, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return templates, nil
}

func (t TemplateRepo) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM templates
	WHERE name = $1`

	res, err := t.DB.ExecContext(ctx, query, name)
	if err != nil {
		return err // 500
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err // 500
	}
	if affected == 0 {
		return model.ErrTemplateNotFound // 404
	}
	return nil
}
