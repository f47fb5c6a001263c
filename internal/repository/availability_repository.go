package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ustozhub/ustozhub-api/internal/models"
)

const ruleColumns = "id, teacher_id, rule_type, weekday, rule_date, start_time, end_time, is_open, created_at, updated_at"

// AvailabilityRepository manages persistence for availability rules.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByTeacher returns every rule owned by a teacher, recurring first,
// ordered by start time within each kind.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_rules WHERE teacher_id = $1 ORDER BY rule_type, weekday, rule_date, start_time", ruleColumns)
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// FindByID fetches a rule by ID.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityRule, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_rules WHERE id = $1", ruleColumns)
	var rule models.AvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListSameKey returns rules sharing the candidate's type and key (weekday
// for recurring, date for one-off), optionally excluding one rule ID. The
// caller performs the interval overlap test on the result.
func (r *AvailabilityRepository) ListSameKey(ctx context.Context, rule *models.AvailabilityRule, excludeID string) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_rules WHERE teacher_id = $1 AND rule_type = $2", ruleColumns)
	args := []interface{}{rule.TeacherID, rule.Type}

	switch rule.Type {
	case models.RuleRecurring:
		query += fmt.Sprintf(" AND weekday = $%d", len(args)+1)
		args = append(args, rule.Weekday)
	case models.RuleOneOff:
		query += fmt.Sprintf(" AND rule_date = $%d", len(args)+1)
		args = append(args, rule.Date)
	}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}

	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("list rules by key: %w", err)
	}
	return rules, nil
}

// Create inserts a new availability rule.
func (r *AvailabilityRepository) Create(ctx context.Context, rule *models.AvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	const query = `INSERT INTO availability_rules (id, teacher_id, rule_type, weekday, rule_date, start_time, end_time, is_open, created_at, updated_at)
		VALUES (:id, :teacher_id, :rule_type, :weekday, :rule_date, :start_time, :end_time, :is_open, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}
	return nil
}

// Update modifies an existing availability rule.
func (r *AvailabilityRepository) Update(ctx context.Context, rule *models.AvailabilityRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_rules SET rule_type = :rule_type, weekday = :weekday, rule_date = :rule_date, start_time = :start_time, end_time = :end_time, is_open = :is_open, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	return nil
}

// Delete removes an availability rule.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}
	return nil
}
