package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"
)

var ErrNotFound = errors.New("not found")

type GenerationLogRepository struct {
	pool *pgxpool.Pool
}

func NewGenerationLogRepository(pool *pgxpool.Pool) *GenerationLogRepository {
	return &GenerationLogRepository{pool: pool}
}

func (r *GenerationLogRepository) Create(l *entity.GenerationLog) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO generation_logs
			(record_id, role, template_name, filename, local_path, object_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, l.RecordID, l.Role, l.TemplateName, l.Filename, l.LocalPath, l.ObjectURL)

	return row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (r *GenerationLogRepository) UpdateDispatch(l *entity.GenerationLog) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE generation_logs
		SET email_sent = $2,
		    email_provider = $3,
		    email_message_id = $4,
		    email_error = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, l.ID, l.EmailSent, l.EmailProvider, l.EmailMessageID, l.EmailError)

	if err := row.Scan(&l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *GenerationLogRepository) GetByID(id string) (*entity.GenerationLog, error) {
	ctx := context.Background()
	l := &entity.GenerationLog{}

	row := r.pool.QueryRow(ctx, `
		SELECT id, record_id, role, template_name, filename, local_path, object_url,
		       email_sent, email_provider, email_message_id, email_error,
		       created_at, updated_at
		FROM generation_logs
		WHERE id = $1
	`, id)

	if err := row.Scan(&l.ID, &l.RecordID, &l.Role, &l.TemplateName, &l.Filename,
		&l.LocalPath, &l.ObjectURL, &l.EmailSent, &l.EmailProvider,
		&l.EmailMessageID, &l.EmailError, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return l, nil
}

func (r *GenerationLogRepository) List(limit, offset int) ([]*entity.GenerationLog, error) {
	ctx := context.Background()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, record_id, role, template_name, filename, local_path, object_url,
		       email_sent, email_provider, email_message_id, email_error,
		       created_at, updated_at
		FROM generation_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.GenerationLog
	for rows.Next() {
		l := &entity.GenerationLog{}
		if err := rows.Scan(&l.ID, &l.RecordID, &l.Role, &l.TemplateName, &l.Filename,
			&l.LocalPath, &l.ObjectURL, &l.EmailSent, &l.EmailProvider,
			&l.EmailMessageID, &l.EmailError, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
