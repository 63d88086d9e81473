package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examhall/examhall-backend/internal/model"
)

// ResultRepository handles aggregate grading outcomes. One row per
// (exam_id, student_id); a resubmission path never exists, but the upsert
// keeps the result worker's retries idempotent.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Upsert creates or replaces a result row.
func (r *ResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results (exam_id, student_id, marks_obtained, total_marks, percent, comment, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET marks_obtained = EXCLUDED.marks_obtained,
		     total_marks = EXCLUDED.total_marks,
		     percent = EXCLUDED.percent,
		     comment = EXCLUDED.comment,
		     graded_at = EXCLUDED.graded_at`,
		res.ExamID, res.StudentID, res.MarksObtained, res.TotalMarks, res.Percent, res.Comment, res.GradedAt,
	)
	return err
}

// BulkUpsert writes a batch of results in one statement via UNNEST.
func (r *ResultRepository) BulkUpsert(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}

	n := len(results)
	examIDs := make([]uuid.UUID, 0, n)
	studentIDs := make([]int, 0, n)
	marks := make([]float64, 0, n)
	totals := make([]float64, 0, n)
	percents := make([]int, 0, n)
	comments := make([]string, 0, n)
	gradedAts := make([]time.Time, 0, n)

	for i := range results {
		res := &results[i]
		examIDs = append(examIDs, res.ExamID)
		studentIDs = append(studentIDs, res.StudentID)
		marks = append(marks, res.MarksObtained)
		totals = append(totals, res.TotalMarks)
		percents = append(percents, res.Percent)
		comments = append(comments, res.Comment)
		gradedAts = append(gradedAts, res.GradedAt)
	}

	query := `
		INSERT INTO results (exam_id, student_id, marks_obtained, total_marks, percent, comment, graded_at)
		SELECT u.exam_id, u.student_id, u.marks, u.total, u.percent, u.comment, u.graded_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::float8[],
			$4::float8[],
			$5::int[],
			$6::text[],
			$7::timestamptz[]
		) AS u (exam_id, student_id, marks, total, percent, comment, graded_at)
		ON CONFLICT (exam_id, student_id) DO UPDATE
		SET marks_obtained = EXCLUDED.marks_obtained,
		    total_marks = EXCLUDED.total_marks,
		    percent = EXCLUDED.percent,
		    comment = EXCLUDED.comment,
		    graded_at = EXCLUDED.graded_at
	`

	_, err := r.pool.Exec(ctx, query, examIDs, studentIDs, marks, totals, percents, comments, gradedAts)
	return err
}

// GetByExamAndStudent retrieves one student's result for an exam.
func (r *ResultRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, student_id, marks_obtained, total_marks, percent, comment, graded_at
		 FROM results WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&res.ExamID, &res.StudentID, &res.MarksObtained, &res.TotalMarks, &res.Percent, &res.Comment, &res.GradedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListByExam retrieves all results for an exam, joined with student identity.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id, marks_obtained, total_marks, percent, comment, graded_at
		 FROM results WHERE exam_id = $1
		 ORDER BY marks_obtained DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ExamID, &res.StudentID, &res.MarksObtained, &res.TotalMarks, &res.Percent, &res.Comment, &res.GradedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
