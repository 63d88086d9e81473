package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examhall/examhall-backend/internal/model"
)

// QuestionRepository handles question data access. Type-specific payloads
// (options, pairs, blanks) are stored as jsonb.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_type, question_text, passage_html, image_url,
		        options, correct_index, pairs, blanks, marks, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.ExamID, &q.QuestionType, &q.QuestionText, &q.PassageHTML, &q.ImageURL,
			&q.Options, &q.CorrectIndex, &q.Pairs, &q.Blanks, &q.Marks, &q.OrderNum,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountByExam returns the number of questions in an exam.
func (r *QuestionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID,
	).Scan(&n)
	return n, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_type, question_text, passage_html, image_url,
			options, correct_index, pairs, blanks, marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		q.ExamID, q.QuestionType, q.QuestionText, q.PassageHTML, q.ImageURL,
		q.Options, q.CorrectIndex, q.Pairs, q.Blanks, q.Marks, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceForExam atomically swaps an exam's full question set. The new rows
// are bulk-loaded with COPY inside the same transaction as the delete.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete old questions: %w", err)
	}

	rows := make([][]any, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.ExamID = examID

		optionsJSON, _ := json.Marshal(q.Options)
		pairsJSON, _ := json.Marshal(q.Pairs)
		blanksJSON, _ := json.Marshal(q.Blanks)

		rows = append(rows, []any{
			q.ID, examID, q.QuestionType, q.QuestionText, q.PassageHTML, q.ImageURL,
			optionsJSON, q.CorrectIndex, pairsJSON, blanksJSON, q.Marks, q.OrderNum,
		})
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "exam_id", "question_type", "question_text", "passage_html", "image_url",
			"options", "correct_index", "pairs", "blanks", "marks", "order_num"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	return tx.Commit(ctx)
}
