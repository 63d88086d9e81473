package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examhall/examhall-backend/internal/model"
)

var ErrDuplicateExamCode = errors.New("exam with this code already exists")

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, code, title, author_id, duration_minutes, total_marks,
	questions_shuffled, options_shuffled, fullscreen_required, show_results,
	active, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(
		&e.ID, &e.Code, &e.Title, &e.AuthorID, &e.DurationMinutes, &e.TotalMarks,
		&e.QuestionsShuffled, &e.OptionsShuffled, &e.FullscreenRequired, &e.ShowResults,
		&e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// GetByCode retrieves an exam by its entry code. Codes are matched
// case-insensitively.
func (r *ExamRepository) GetByCode(ctx context.Context, code string) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE UPPER(code) = UPPER($1)`, code))
}

// ListByAuthor retrieves all exams created by a teacher, newest first.
func (r *ExamRepository) ListByAuthor(ctx context.Context, authorID int) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// ListActive retrieves all exams currently open for entry.
func (r *ExamRepository) ListActive(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (code, title, author_id, duration_minutes, total_marks,
			questions_shuffled, options_shuffled, fullscreen_required, show_results, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		e.Code, e.Title, e.AuthorID, e.DurationMinutes, e.TotalMarks,
		e.QuestionsShuffled, e.OptionsShuffled, e.FullscreenRequired, e.ShowResults, e.Active,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateExamCode
		}
		return err
	}
	return nil
}

// Update modifies an exam's settings.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, duration_minutes = $2, total_marks = $3,
		     questions_shuffled = $4, options_shuffled = $5,
		     fullscreen_required = $6, show_results = $7, active = $8,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $9`,
		e.Title, e.DurationMinutes, e.TotalMarks,
		e.QuestionsShuffled, e.OptionsShuffled,
		e.FullscreenRequired, e.ShowResults, e.Active,
		e.ID,
	)
	return err
}

// SetActive flips an exam's availability without touching other settings.
func (r *ExamRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		active, id,
	)
	return err
}

// Delete removes an exam and, via cascades, its questions and sessions.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
