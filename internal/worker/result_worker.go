package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/config"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and bulk-upserts result rows.
// The session row itself is finalized synchronously at submission; this queue
// only carries the derived result record, so a backlog never blocks students.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ResultPayload is one queued grading outcome.
type ResultPayload struct {
	SessionID string  `json:"session_id"`
	ExamID    string  `json:"exam_id"`
	StudentID int     `json:"student_id"`
	Marks     float64 `json:"marks"`
	Total     float64 `json:"total"`
	Percent   int     `json:"percent"`
	Comment   string  `json:"comment"`
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*ResultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p ResultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch Upsert Wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*ResultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsertResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result upsert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// After successful result writes → drop the sessions' live answer caches.
	w.bulkClearAnswerCaches(ctx, batch)
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultWorker) bulkUpsertResults(ctx context.Context, batch []*ResultPayload) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	marks := make([]float64, 0, n)
	totals := make([]float64, 0, n)
	percents := make([]int, 0, n)
	comments := make([]string, 0, n)
	gradedAts := make([]time.Time, n)

	now := time.Now()
	for i, p := range batch {
		eID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, eID)
		students = append(students, p.StudentID)
		marks = append(marks, p.Marks)
		totals = append(totals, p.Total)
		percents = append(percents, p.Percent)
		comments = append(comments, p.Comment)
		gradedAts[i] = now
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

	_, err := w.pool.Exec(ctx, query, examIDs, students, marks, totals, percents, comments, gradedAts)
	return err
}

// ----------------------------------------------------------------
// BULK Redis DEL for clearing live answer caches
// ----------------------------------------------------------------

func (w *ResultWorker) bulkClearAnswerCaches(ctx context.Context, batch []*ResultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.StudentAnswersKey(p.SessionID))
		pipe.Del(ctx, config.CacheKey.StudentFlagsKey(p.SessionID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single upsert
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, p *ResultPayload) error {
	eID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO results (exam_id, student_id, marks_obtained, total_marks, percent, comment, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET marks_obtained = EXCLUDED.marks_obtained,
		     total_marks = EXCLUDED.total_marks,
		     percent = EXCLUDED.percent,
		     comment = EXCLUDED.comment,
		     graded_at = EXCLUDED.graded_at`,
		eID, p.StudentID, p.Marks, p.Total, p.Percent, p.Comment,
	)

	return err
}
