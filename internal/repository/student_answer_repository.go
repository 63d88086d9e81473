package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examhall/examhall-backend/internal/model"
)

// StudentAnswerRepository handles persisted answer rows. The write path runs
// through the autosave worker; the engine only reads these rows on resume.
type StudentAnswerRepository struct {
	pool *pgxpool.Pool
}

// NewStudentAnswerRepository creates a new StudentAnswerRepository.
func NewStudentAnswerRepository(pool *pgxpool.Pool) *StudentAnswerRepository {
	return &StudentAnswerRepository{pool: pool}
}

// Upsert creates or updates one answer row.
func (r *StudentAnswerRepository) Upsert(ctx context.Context, sessionID, questionID uuid.UUID, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO student_answers (session_id, question_id, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET payload = EXCLUDED.payload, updated_at = NOW()`,
		sessionID, questionID, payload,
	)
	return err
}

// BulkUpsert writes a batch of answer rows in one statement via UNNEST.
func (r *StudentAnswerRepository) BulkUpsert(ctx context.Context, rows []model.StudentAnswerRow) error {
	if len(rows) == 0 {
		return nil
	}

	n := len(rows)
	sessionIDs := make([]uuid.UUID, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	payloads := make([][]byte, 0, n)

	for i := range rows {
		sessionIDs = append(sessionIDs, rows[i].SessionID)
		questionIDs = append(questionIDs, rows[i].QuestionID)
		payloads = append(payloads, rows[i].Payload)
	}

	query := `
		INSERT INTO student_answers (session_id, question_id, payload)
		SELECT u.session_id, u.question_id, u.payload
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::jsonb[]
		) AS u (session_id, question_id, payload)
		ON CONFLICT (session_id, question_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, sessionIDs, questionIDs, payloads)
	return err
}

// SetFlag records a bookmark toggle, creating the row if the student flagged
// before answering.
func (r *StudentAnswerRepository) SetFlag(ctx context.Context, sessionID, questionID uuid.UUID, flagged bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO student_answers (session_id, question_id, payload, is_flagged)
		 VALUES ($1, $2, '{}'::jsonb, $3)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET is_flagged = EXCLUDED.is_flagged, updated_at = NOW()`,
		sessionID, questionID, flagged,
	)
	return err
}

// MarkCorrectness stamps the grading verdict on a batch of rows at submission.
func (r *StudentAnswerRepository) MarkCorrectness(ctx context.Context, sessionID uuid.UUID, questionIDs []uuid.UUID, correct []bool) error {
	if len(questionIDs) == 0 {
		return nil
	}

	query := `
		UPDATE student_answers AS sa
		SET is_correct = t.correct
		FROM (
			SELECT u.question_id, u.correct
			FROM UNNEST($2::uuid[], $3::bool[]) AS u (question_id, correct)
		) AS t
		WHERE sa.session_id = $1
		  AND sa.question_id = t.question_id
	`

	_, err := r.pool.Exec(ctx, query, sessionID, questionIDs, correct)
	return err
}

// ListBySession retrieves all persisted answers for a session.
func (r *StudentAnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.StudentAnswerRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, payload, is_flagged, is_correct, updated_at
		 FROM student_answers WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StudentAnswerRow
	for rows.Next() {
		var row model.StudentAnswerRow
		var updatedAt time.Time
		if err := rows.Scan(&row.SessionID, &row.QuestionID, &row.Payload, &row.IsFlagged, &row.IsCorrect, &updatedAt); err != nil {
			return nil, err
		}
		row.UpdatedAt = updatedAt
		out = append(out, row)
	}
	return out, rows.Err()
}
