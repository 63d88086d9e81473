package service

import (
	"context"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
)

// StudentService handles student account management.
type StudentService struct {
	studentRepo *repository.StudentRepository
	authService *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, authService *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, authService: authService}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// GetByLoginID retrieves a student by their login ID.
func (s *StudentService) GetByLoginID(ctx context.Context, loginID string) (*model.Student, error) {
	return s.studentRepo.GetByLoginID(ctx, loginID)
}

// List retrieves students with pagination and an optional grade filter.
func (s *StudentService) List(ctx context.Context, grade *string, page, perPage int) ([]model.Student, int, error) {
	students, total, err := s.studentRepo.ListPaginated(ctx, grade, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, total, nil
}

// Create registers a new student with a hashed password.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		Name:         req.Name,
		LoginID:      req.LoginID,
		Grade:        req.Grade,
		Section:      req.Section,
		PasswordHash: hash,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// ResetPassword replaces a student's password.
func (s *StudentService) ResetPassword(ctx context.Context, id int, password string) error {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return err
	}
	return s.studentRepo.UpdatePassword(ctx, id, hash)
}

// Delete removes a student account.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	return s.studentRepo.Delete(ctx, id)
}
