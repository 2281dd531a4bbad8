package repository

import "github.com/haydnphilipdesign/coversheet-service/internal/domain/entity"

// GenerationLogRepository defines the interface for cover-sheet audit-trail
// persistence.
type GenerationLogRepository interface {
	Create(l *entity.GenerationLog) error
	UpdateDispatch(l *entity.GenerationLog) error
	GetByID(id string) (*entity.GenerationLog, error)
	List(limit, offset int) ([]*entity.GenerationLog, error)
}
