package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ustozhub/ustozhub-api/internal/models"
)

const offeringColumns = "id, teacher_id, subject, level, description, hourly_rate, active, created_at, updated_at"

// SubjectRepository manages persistence for subject offerings.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByTeacher returns all offerings owned by a teacher.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectOffering, error) {
	query := fmt.Sprintf("SELECT %s FROM subject_offerings WHERE teacher_id = $1 ORDER BY subject", offeringColumns)
	var offerings []models.SubjectOffering
	if err := r.db.SelectContext(ctx, &offerings, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subject offerings: %w", err)
	}
	return offerings, nil
}

// FindByID fetches an offering by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.SubjectOffering, error) {
	query := fmt.Sprintf("SELECT %s FROM subject_offerings WHERE id = $1", offeringColumns)
	var offering models.SubjectOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// Create inserts a new subject offering.
func (r *SubjectRepository) Create(ctx context.Context, offering *models.SubjectOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now

	const query = `INSERT INTO subject_offerings (id, teacher_id, subject, level, description, hourly_rate, active, created_at, updated_at)
		VALUES (:id, :teacher_id, :subject, :level, :description, :hourly_rate, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create subject offering: %w", err)
	}
	return nil
}

// Update modifies an existing subject offering.
func (r *SubjectRepository) Update(ctx context.Context, offering *models.SubjectOffering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subject_offerings SET subject = :subject, level = :level, description = :description, hourly_rate = :hourly_rate, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("update subject offering: %w", err)
	}
	return nil
}

// Deactivate sets an offering's active flag to false.
func (r *SubjectRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE subject_offerings SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate subject offering: %w", err)
	}
	return nil
}
