package model

import "time"

// Student is an exam taker. Grade/section eligibility is resolved by the
// login/entry flow before a session engine ever starts.
type Student struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	LoginID      string    `json:"login_id"`
	Grade        string    `json:"grade"`
	Section      string    `json:"section"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Teacher authors exams and reads results.
type Teacher struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	LoginID  string `json:"login_id" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// TeacherLoginRequest is the payload for teacher authentication.
type TeacherLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// CreateStudentRequest is the payload for registering a new student account.
type CreateStudentRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	LoginID  string `json:"login_id" binding:"required,min=3,max=30"`
	Grade    string `json:"grade" binding:"required,max=20"`
	Section  string `json:"section" binding:"omitempty,max=20"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// ResetPasswordRequest is the payload for resetting a student's password.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}
