package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/fingerprint"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/scoring"
	"github.com/examhall/examhall-backend/internal/session"
	"github.com/examhall/examhall-backend/internal/shuffle"
	"github.com/examhall/examhall-backend/internal/worker"
)

// Domain errors for the session lifecycle.
var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrOtherExamActive   = errors.New("another exam is already in progress")
	ErrAlreadySubmitted  = errors.New("exam already submitted")
	ErrSessionTerminated = errors.New("exam session was terminated")
	ErrSessionNotFound   = errors.New("no running session")
	ErrNotSessionOwner   = errors.New("session belongs to another student")
	ErrResultsHidden     = errors.New("results are not published for this exam")
)

// SessionService orchestrates exam attempts: entry, the per-session engine,
// resume, submission, and the async persistence queues. Engines live in an
// in-process registry; every mutation on a running attempt flows through its
// engine.
type SessionService struct {
	cfg          *config.Config
	examService  *ExamService
	sessionRepo  *repository.ExamSessionRepository
	securityRepo *repository.SessionSecurityRepository
	answerRepo   *repository.StudentAnswerRepository
	resultRepo   *repository.ResultRepository
	rdb          *redis.Client
	log          zerolog.Logger

	mu      sync.RWMutex
	engines map[uuid.UUID]*session.Engine

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	examService *ExamService,
	sessionRepo *repository.ExamSessionRepository,
	securityRepo *repository.SessionSecurityRepository,
	answerRepo *repository.StudentAnswerRepository,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		cfg:          cfg,
		examService:  examService,
		sessionRepo:  sessionRepo,
		securityRepo: securityRepo,
		answerRepo:   answerRepo,
		resultRepo:   resultRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "session_service").Logger(),
		engines:      make(map[uuid.UUID]*session.Engine),
		rootCtx:      ctx,
		rootCancel:   cancel,
	}
}

// Shutdown stops every running engine. Sessions stay IN_PROGRESS in the
// database and resume cleanly after a restart.
func (s *SessionService) Shutdown() {
	s.rootCancel()
}

// ExamSummary is the student-facing description of an exam at the
// instructions step.
type ExamSummary struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Title              string    `json:"title"`
	DurationMinutes    int       `json:"duration_minutes"`
	FullscreenRequired bool      `json:"fullscreen_required"`
	ShowResults        bool      `json:"show_results"`
}

// SessionView is a running attempt as the client sees it: realized question
// order, restored answers, and the live countdown.
type SessionView struct {
	SessionID     uuid.UUID                  `json:"session_id"`
	State         session.State              `json:"state"`
	TimeRemaining int                        `json:"time_remaining"`
	Questions     []model.QuestionForStudent `json:"questions"`
	Answers       []model.Answer             `json:"answers"`
	Flags         []bool                     `json:"flags"`
	Reason        string                     `json:"reason,omitempty"`
}

// EntryOutcome is the response to an exam-code entry. A fresh attempt lands on
// the instructions step; an interrupted one resumes directly.
type EntryOutcome struct {
	State         string       `json:"state"` // "instructions" or "resume"
	Exam          ExamSummary  `json:"exam"`
	QuestionCount int          `json:"question_count"`
	Session       *SessionView `json:"session,omitempty"`
}

// Enter validates an exam code for a student and decides between the
// instructions step and a direct resume.
func (s *SessionService) Enter(ctx context.Context, studentID int, req *model.StartExamRequest) (*EntryOutcome, error) {
	exam, err := s.lookupExam(ctx, studentID, req.ExamCode)
	if err != nil {
		return nil, err
	}

	payload, err := s.examService.GetExamPayload(ctx, exam)
	if err != nil {
		return nil, err
	}

	outcome := &EntryOutcome{
		Exam:          summarize(exam),
		QuestionCount: len(payload.Questions),
	}

	sess, err := s.sessionRepo.GetByExamAndStudent(ctx, exam.ID, studentID)
	if errors.Is(err, session.ErrNotFound) {
		outcome.State = "instructions"
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case model.SessionStatusSubmitted:
		return nil, ErrAlreadySubmitted
	case model.SessionStatusTerminated:
		return nil, ErrSessionTerminated
	}

	view, err := s.resume(ctx, exam, sess, req.Signals)
	if err != nil {
		return nil, err
	}
	outcome.State = "resume"
	outcome.Session = view
	return outcome, nil
}

// Begin creates the exam session and starts its engine. The unique index on
// (exam_id, student_id) makes a duplicate Begin resolve to a resume instead
// of a second attempt.
func (s *SessionService) Begin(ctx context.Context, studentID int, req *model.StartExamRequest) (*SessionView, error) {
	exam, err := s.lookupExam(ctx, studentID, req.ExamCode)
	if err != nil {
		return nil, err
	}

	questions, err := s.examService.GetQuestions(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	sess := &model.ExamSession{
		ExamID:        exam.ID,
		StudentID:     studentID,
		Status:        model.SessionStatusInProgress,
		TimeRemaining: exam.DurationMinutes * 60,
		SecurityToken: uuid.NewString(),
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		if !errors.Is(err, repository.ErrSessionExists) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		existing, err := s.sessionRepo.GetByExamAndStudent(ctx, exam.ID, studentID)
		if err != nil {
			return nil, err
		}
		switch existing.Status {
		case model.SessionStatusSubmitted:
			return nil, ErrAlreadySubmitted
		case model.SessionStatusTerminated:
			return nil, ErrSessionTerminated
		}
		return s.resume(ctx, exam, existing, req.Signals)
	}

	ordered := s.realize(exam, studentID, questions, nil)
	order := questionIDs(ordered)
	sess.QuestionOrder = order
	s.queueQuestionOrder(ctx, sess.ID, order)

	fp := fingerprint.Compute(req.Signals)
	if err := s.securityRepo.Bind(ctx, &model.SessionSecurity{
		SessionID:         sess.ID,
		Token:             sess.SecurityToken,
		DeviceFingerprint: fp,
	}); err != nil {
		return nil, fmt.Errorf("bind device: %w", err)
	}

	answers := model.InitializeAnswers(ordered)
	flags := make([]bool, len(ordered))

	eng := s.launchEngine(exam, sess, ordered, answers, flags, fp)

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", studentID).
		Str("exam_code", exam.Code).
		Msg("Session started")
	return s.viewOf(eng), nil
}

// resume rebinds an interrupted session to the requesting device and starts a
// fresh engine with the persisted clock, order, and answers. Rotating the
// security token is what terminates any engine still running for the old
// device: its next ownership check sees a foreign token.
func (s *SessionService) resume(ctx context.Context, exam *model.Exam, sess *model.ExamSession, signals model.FingerprintSignals) (*SessionView, error) {
	fp := fingerprint.Compute(signals)

	token := uuid.NewString()
	if err := s.sessionRepo.RebindToken(ctx, sess.ID, token); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionTerminated
		}
		return nil, fmt.Errorf("rebind token: %w", err)
	}
	sess.SecurityToken = token

	if err := s.securityRepo.Bind(ctx, &model.SessionSecurity{
		SessionID:         sess.ID,
		Token:             token,
		DeviceFingerprint: fp,
	}); err != nil {
		return nil, fmt.Errorf("bind device: %w", err)
	}

	questions, err := s.examService.GetQuestions(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	ordered := s.realize(exam, sess.StudentID, questions, sess.QuestionOrder)
	if len(sess.QuestionOrder) == 0 {
		order := questionIDs(ordered)
		sess.QuestionOrder = order
		s.queueQuestionOrder(ctx, sess.ID, order)
	}

	answers, flags := s.restoreAnswers(ctx, sess.ID, ordered)

	eng := s.launchEngine(exam, sess, ordered, answers, flags, fp)

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", sess.StudentID).
		Int("time_remaining", sess.TimeRemaining).
		Msg("Session resumed")
	return s.viewOf(eng), nil
}

// Snapshot returns the live view of a running session, or its terminal state
// from the database when no engine is hosted here.
func (s *SessionService) Snapshot(ctx context.Context, studentID int, sessionID uuid.UUID) (*SessionView, error) {
	if eng, err := s.engineFor(sessionID, studentID); err == nil {
		return s.viewOf(eng), nil
	}

	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.StudentID != studentID {
		return nil, ErrNotSessionOwner
	}

	view := &SessionView{SessionID: sess.ID, TimeRemaining: sess.TimeRemaining}
	switch sess.Status {
	case model.SessionStatusSubmitted:
		view.State = session.StateCompleted
	case model.SessionStatusTerminated:
		view.State = session.StateTerminated
	default:
		// In progress in the database but not hosted here (restart).
		// The client re-enters with its exam code to resume.
		view.State = session.StateLoading
	}
	return view, nil
}

// SaveAnswer routes an answer mutation to the session's engine.
func (s *SessionService) SaveAnswer(ctx context.Context, studentID int, sessionID uuid.UUID, index int, ans model.Answer) error {
	eng, err := s.engineFor(sessionID, studentID)
	if err != nil {
		return err
	}
	return eng.SaveAnswer(ctx, index, ans)
}

// ToggleFlag routes a bookmark toggle to the session's engine.
func (s *SessionService) ToggleFlag(ctx context.Context, studentID int, sessionID uuid.UUID, index int, flagged bool) error {
	eng, err := s.engineFor(sessionID, studentID)
	if err != nil {
		return err
	}
	return eng.ToggleFlag(ctx, index, flagged)
}

// ReportViolation records a proctoring event and reports whether the client
// should raise the blocking fullscreen warning.
func (s *SessionService) ReportViolation(ctx context.Context, studentID int, sessionID uuid.UUID, kind, detail string) (bool, error) {
	eng, err := s.engineFor(sessionID, studentID)
	if err != nil {
		return false, err
	}
	return eng.ReportViolation(ctx, kind, detail)
}

// Submit grades and closes a running session. The returned summary is nil
// when the exam hides results from students.
func (s *SessionService) Submit(ctx context.Context, studentID int, sessionID uuid.UUID) (*scoring.Summary, error) {
	eng, err := s.engineFor(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if err := eng.Submit(ctx, false); err != nil {
		return nil, err
	}
	return eng.Snapshot().Summary, nil
}

// Result retrieves a student's published result for an exam.
func (s *SessionService) Result(ctx context.Context, studentID int, examCode string) (*model.Result, error) {
	exam, err := s.examService.GetByCode(ctx, examCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}
	if !exam.ShowResults {
		return nil, ErrResultsHidden
	}

	res, err := s.resultRepo.GetByExamAndStudent(ctx, exam.ID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return res, err
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func (s *SessionService) lookupExam(ctx context.Context, studentID int, code string) (*model.Exam, error) {
	exam, err := s.examService.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}
	if !exam.Active {
		return nil, ErrExamNotAvailable
	}

	// One exam at a time: a running session for a different exam blocks entry.
	running, err := s.sessionRepo.GetInProgressByStudent(ctx, studentID)
	if err == nil && running.ExamID != exam.ID {
		return nil, ErrOtherExamActive
	}
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	return exam, nil
}

// realize derives the student's personal question sequence. A persisted order
// wins over re-derivation so resume replays the exact original sequence even
// if the exam's shuffle settings changed mid-flight.
func (s *SessionService) realize(exam *model.Exam, studentID int, questions []model.Question, persisted []string) []model.Question {
	seed := shuffle.AttemptSeed(studentID, exam.ID, exam.Code)

	var ordered []model.Question
	if len(persisted) > 0 {
		byID := make(map[string]model.Question, len(questions))
		for _, q := range questions {
			byID[q.ID.String()] = q
		}
		seen := make(map[string]bool, len(persisted))
		for _, id := range persisted {
			if q, ok := byID[id]; ok {
				ordered = append(ordered, q)
				seen[id] = true
			}
		}
		// Questions added after the order was realized go to the end.
		for _, q := range questions {
			if !seen[q.ID.String()] {
				ordered = append(ordered, q)
			}
		}
	} else if exam.QuestionsShuffled {
		ordered = shuffle.Seeded(questions, seed)
	} else {
		ordered = append([]model.Question(nil), questions...)
	}

	if exam.OptionsShuffled {
		for i := range ordered {
			q := &ordered[i]
			qSeed := seed + "|" + q.ID.String()
			switch {
			case q.QuestionType.IsChoice() && q.QuestionType != model.QuestionTypeTrueFalse && len(q.Options) > 1:
				q.Options, q.CorrectIndex = shuffle.Options(q.Options, qSeed, q.CorrectIndex)
			case q.QuestionType == model.QuestionTypeMatching:
				q.Pairs = shuffle.MatchingPairs(q.Pairs, qSeed)
			}
		}
	}
	return ordered
}

// restoreAnswers rebuilds the answer and flag lists for a resumed session.
// The database rows are the base; the Redis hashes overlay them because the
// write-through throttle can leave the freshest edit in Redis only.
func (s *SessionService) restoreAnswers(ctx context.Context, sessionID uuid.UUID, ordered []model.Question) ([]model.Answer, []bool) {
	byQ := make(map[string]model.Answer)
	flagged := make(map[string]bool)

	rows, err := s.answerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Answer restore from database failed")
	}
	for _, row := range rows {
		var ans model.Answer
		if err := json.Unmarshal(row.Payload, &ans); err == nil {
			byQ[row.QuestionID.String()] = ans
		}
		if row.IsFlagged {
			flagged[row.QuestionID.String()] = true
		}
	}

	if m, err := s.rdb.HGetAll(ctx, config.CacheKey.StudentAnswersKey(sessionID.String())).Result(); err == nil {
		for qid, raw := range m {
			var ans model.Answer
			if err := json.Unmarshal([]byte(raw), &ans); err == nil {
				byQ[qid] = ans
			}
		}
	}
	if m, err := s.rdb.HGetAll(ctx, config.CacheKey.StudentFlagsKey(sessionID.String())).Result(); err == nil {
		for qid, v := range m {
			flagged[qid] = v == "1"
		}
	}

	answers := model.InitializeAnswers(ordered)
	flags := make([]bool, len(ordered))
	for i := range ordered {
		id := ordered[i].ID.String()
		if ans, ok := byQ[id]; ok {
			answers[i] = ans
		}
		flags[i] = flagged[id]
	}
	return answers, flags
}

func (s *SessionService) launchEngine(exam *model.Exam, sess *model.ExamSession, questions []model.Question, answers []model.Answer, flags []bool, fp string) *session.Engine {
	eng := session.New(session.Params{
		Exam:        exam,
		Session:     sess,
		Questions:   questions,
		Answers:     answers,
		Flags:       flags,
		Fingerprint: fp,
		Sessions:    s.sessionRepo,
		Security:    s.securityRepo,
		AnswerSink:  &queueAnswerSink{rdb: s.rdb},
		ResultSink:  &queueResultSink{rdb: s.rdb, answerRepo: s.answerRepo, log: s.log},
		Violations:  &queueViolationSink{rdb: s.rdb},
		Log:         s.log,
	})

	s.mu.Lock()
	s.engines[sess.ID] = eng
	s.mu.Unlock()

	if err := s.rdb.Set(s.rootCtx, config.CacheKey.StudentActiveSessionKey(sess.StudentID), sess.ID.String(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Int("student_id", sess.StudentID).Msg("Active session key set failed")
	}

	go eng.Run(s.rootCtx)
	go func() {
		<-eng.Done()
		s.mu.Lock()
		// A resume may have replaced the entry already.
		current := s.engines[sess.ID] == eng
		if current {
			delete(s.engines, sess.ID)
		}
		s.mu.Unlock()
		if current {
			s.rdb.Del(context.Background(), config.CacheKey.StudentActiveSessionKey(sess.StudentID))
		}
	}()
	return eng
}

// Engine returns the running engine for a session when it is hosted here and
// owned by the student, nil otherwise.
func (s *SessionService) Engine(sessionID uuid.UUID, studentID int) *session.Engine {
	eng, err := s.engineFor(sessionID, studentID)
	if err != nil {
		return nil
	}
	return eng
}

func (s *SessionService) engineFor(sessionID uuid.UUID, studentID int) (*session.Engine, error) {
	s.mu.RLock()
	eng := s.engines[sessionID]
	s.mu.RUnlock()

	if eng == nil {
		return nil, ErrSessionNotFound
	}
	if eng.StudentID() != studentID {
		return nil, ErrNotSessionOwner
	}
	return eng, nil
}

func (s *SessionService) viewOf(eng *session.Engine) *SessionView {
	snap := eng.Snapshot()
	return &SessionView{
		SessionID:     eng.SessionUUID(),
		State:         snap.State,
		TimeRemaining: snap.TimeRemaining,
		Questions:     eng.StudentQuestions(),
		Answers:       snap.Answers,
		Flags:         snap.Flags,
		Reason:        snap.Reason,
	}
}

func (s *SessionService) queueQuestionOrder(ctx context.Context, sessionID uuid.UUID, order []string) {
	raw, _ := json.Marshal(worker.QuestionOrderPayload{
		SessionID: sessionID.String(),
		Order:     order,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Question order enqueue failed")
	}
}

func summarize(exam *model.Exam) ExamSummary {
	return ExamSummary{
		ID:                 exam.ID,
		Code:               exam.Code,
		Title:              exam.Title,
		DurationMinutes:    exam.DurationMinutes,
		FullscreenRequired: exam.FullscreenRequired,
		ShowResults:        exam.ShowResults,
	}
}

func questionIDs(questions []model.Question) []string {
	ids := make([]string, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID.String()
	}
	return ids
}

// ────────────────────────────────────────────────────────────────────────────
// Engine sinks backed by Redis queues
// ────────────────────────────────────────────────────────────────────────────

// queueAnswerSink write-throughs answers to the Redis live hash and the
// autosave queue in one pipeline. The engine's in-memory copy stays the
// source of truth, so a failed pipeline only costs durability, not state.
type queueAnswerSink struct {
	rdb *redis.Client
}

func (q *queueAnswerSink) SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, ans model.Answer) error {
	raw, err := json.Marshal(ans)
	if err != nil {
		return err
	}
	payload, _ := json.Marshal(worker.AnswerPayload{
		SessionID:  sessionID.String(),
		QuestionID: questionID.String(),
		Answer:     raw,
	})

	pipe := q.rdb.Pipeline()
	pipe.HSet(ctx, config.CacheKey.StudentAnswersKey(sessionID.String()), questionID.String(), raw)
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (q *queueAnswerSink) SaveFlag(ctx context.Context, sessionID, questionID uuid.UUID, flagged bool) error {
	payload, _ := json.Marshal(worker.AnswerPayload{
		SessionID:  sessionID.String(),
		QuestionID: questionID.String(),
		Flagged:    &flagged,
	})

	v := "0"
	if flagged {
		v = "1"
	}

	pipe := q.rdb.Pipeline()
	pipe.HSet(ctx, config.CacheKey.StudentFlagsKey(sessionID.String()), questionID.String(), v)
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	_, err := pipe.Exec(ctx)
	return err
}

// queueResultSink queues the aggregate result and stamps per-question
// correctness. The queue push is the success criterion: if Redis is down the
// submission must fail and roll back rather than silently lose the result.
type queueResultSink struct {
	rdb        *redis.Client
	answerRepo *repository.StudentAnswerRepository
	log        zerolog.Logger
}

func (q *queueResultSink) SaveResult(ctx context.Context, sess *model.ExamSession, sum scoring.Summary) error {
	raw, err := json.Marshal(worker.ResultPayload{
		SessionID: sess.ID.String(),
		ExamID:    sess.ExamID.String(),
		StudentID: sess.StudentID,
		Marks:     sum.TotalMarks,
		Total:     sum.TotalPossibleMarks,
		Percent:   sum.Percent,
		Comment:   gradeComment(sum),
	})
	if err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue result: %w", err)
	}

	// Correctness stamps are teacher-facing review data; best effort.
	qids := make([]uuid.UUID, 0, len(sum.QuestionResults))
	correct := make([]bool, 0, len(sum.QuestionResults))
	for _, qr := range sum.QuestionResults {
		qids = append(qids, qr.QuestionID)
		correct = append(correct, qr.FullyCorrect)
	}
	if err := q.answerRepo.MarkCorrectness(ctx, sess.ID, qids, correct); err != nil {
		q.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Correctness stamping failed")
	}
	return nil
}

// queueViolationSink pushes proctoring events onto the violation queue.
type queueViolationSink struct {
	rdb *redis.Client
}

func (q *queueViolationSink) RecordViolation(ctx context.Context, sess *model.ExamSession, kind, detail string) error {
	raw, _ := json.Marshal(worker.ViolationPayload{
		SessionID: sess.ID.String(),
		ExamID:    sess.ExamID.String(),
		StudentID: sess.StudentID,
		Kind:      kind,
		Detail:    detail,
		Timestamp: time.Now().Unix(),
	})
	return q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw).Err()
}

// gradeComment renders the stored result comment: the percent band plus the
// correctness counts, e.g. "Good (7 of 10 correct)".
func gradeComment(sum scoring.Summary) string {
	var band string
	switch {
	case sum.Percent >= 90:
		band = "Excellent"
	case sum.Percent >= 75:
		band = "Good"
	case sum.Percent >= 60:
		band = "Satisfactory"
	case sum.Percent >= 40:
		band = "Needs improvement"
	default:
		band = "Failed"
	}
	return fmt.Sprintf("%s (%d of %d correct)", band, sum.CorrectCount, sum.TotalQuestions)
}
