package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key holding a student's active JWT ID.
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:student:%d", studentID)
}

// TeacherLoginKey returns the cache key holding a teacher's active JWT ID.
func (r *CacheKeyStruct) TeacherLoginKey(teacherID int) string {
	return fmt.Sprintf("login:teacher:%d", teacherID)
}

// StudentActiveSessionKey returns the cache key for a student's currently
// active exam session.
func (r *CacheKeyStruct) StudentActiveSessionKey(studentID int) string {
	return fmt.Sprintf("student:%d:active_session", studentID)
}

// StudentAnswersKey returns the cache key for a session's live answers hash.
func (r *CacheKeyStruct) StudentAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// StudentFlagsKey returns the cache key for a session's bookmarked questions.
func (r *CacheKeyStruct) StudentFlagsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:flags", sessionID)
}

// ExamPayloadKey returns the cache key for an exam's student-facing payload.
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamQuestionsKey returns the cache key for an exam's full question set,
// grading keys included. Server-side use only.
func (r *CacheKeyStruct) ExamQuestionsKey(examID string) string {
	return fmt.Sprintf("exam:%s:questions", examID)
}

var CacheKey = NewCacheKeyStruct()
