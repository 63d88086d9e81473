package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/session"
)

// ErrSessionExists is returned by Create when the student already has a
// session for the exam. Callers refetch and treat it as a resume.
var ErrSessionExists = errors.New("session already exists for this exam and student")

// ExamSessionRepository handles exam session data access. It implements the
// engine's SessionStore, translating pgx.ErrNoRows into session.ErrNotFound.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, exam_id, student_id, status, time_remaining,
	security_token, question_order, started_at, submitted_at, score`

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.ExamID, &s.StudentID, &s.Status, &s.TimeRemaining,
		&s.SecurityToken, &s.QuestionOrder, &s.StartedAt, &s.SubmittedAt, &s.Score,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a session by ID.
func (r *ExamSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetByExamAndStudent retrieves a session for a specific exam-student combination.
func (r *ExamSessionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID))
}

// GetInProgressByStudent retrieves the student's currently running session, if
// any. One student holds at most one in-progress session at a time.
func (r *ExamSessionRepository) GetInProgressByStudent(ctx context.Context, studentID int) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 AND status = $2`,
		studentID, model.SessionStatusInProgress))
}

// Create inserts a new exam session. The unique (exam_id, student_id) index
// makes concurrent first-entry attempts race-safe: the loser gets
// ErrSessionExists and refetches the winner's row.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status, time_remaining, security_token)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		s.ExamID, s.StudentID, model.SessionStatusInProgress, s.TimeRemaining, s.SecurityToken,
	).Scan(&s.ID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionExists
	}
	return err
}

// UpdateHeartbeat refreshes a running session's time_remaining, conditioned on
// the security token still matching. A zero-row update means the session is
// gone, finished, or rebound to another device.
func (r *ExamSessionRepository) UpdateHeartbeat(ctx context.Context, id uuid.UUID, token string, timeRemaining int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET time_remaining = $1
		 WHERE id = $2 AND security_token = $3 AND status = $4`,
		timeRemaining, id, token, model.SessionStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// MarkSubmitted finalizes a session with its score.
func (r *ExamSessionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, score float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, score = $2, submitted_at = $3, time_remaining = 0
		 WHERE id = $4 AND status = $5`,
		model.SessionStatusSubmitted, score, time.Now(), id, model.SessionStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Terminate force-closes a session without a score.
func (r *ExamSessionRepository) Terminate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET status = $1 WHERE id = $2 AND status = $3`,
		model.SessionStatusTerminated, id, model.SessionStatusInProgress,
	)
	return err
}

// RebindToken rotates a session's security token (resume from a new device).
func (r *ExamSessionRepository) RebindToken(ctx context.Context, id uuid.UUID, token string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET security_token = $1 WHERE id = $2 AND status = $3`,
		token, id, model.SessionStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// SetQuestionOrder persists a session's realized question order.
func (r *ExamSessionRepository) SetQuestionOrder(ctx context.Context, id uuid.UUID, order []string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET question_order = $1 WHERE id = $2`,
		order, id,
	)
	return err
}

// SessionResult is one row of a teacher's per-exam results listing.
type SessionResult struct {
	SessionID   uuid.UUID           `json:"session_id"`
	StudentID   int                 `json:"student_id"`
	Name        string              `json:"name"`
	LoginID     string              `json:"login_id"`
	Grade       string              `json:"grade"`
	Section     string              `json:"section"`
	Status      model.SessionStatus `json:"status"`
	Score       *float64            `json:"score"`
	StartedAt   time.Time           `json:"started_at"`
	SubmittedAt *time.Time          `json:"submitted_at"`
}

// ListByExam retrieves all student sessions for an exam with pagination.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]SessionResult, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE exam_id = $1`, examID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, s.id, s.name, s.login_id, s.grade, s.section,
		        es.status, es.score, es.started_at, es.submitted_at
		 FROM exam_sessions es
		 JOIN students s ON es.student_id = s.id
		 WHERE es.exam_id = $1
		 ORDER BY s.grade, s.section, s.name
		 LIMIT $2 OFFSET $3`,
		examID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var sr SessionResult
		if err := rows.Scan(
			&sr.SessionID, &sr.StudentID, &sr.Name, &sr.LoginID, &sr.Grade, &sr.Section,
			&sr.Status, &sr.Score, &sr.StartedAt, &sr.SubmittedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, sr)
	}
	return results, total, rows.Err()
}
