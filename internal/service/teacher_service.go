package service

import (
	"context"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
)

// TeacherService handles teacher account lookups.
type TeacherService struct {
	teacherRepo *repository.TeacherRepository
}

// NewTeacherService creates a new TeacherService.
func NewTeacherService(teacherRepo *repository.TeacherRepository) *TeacherService {
	return &TeacherService{teacherRepo: teacherRepo}
}

// GetByID retrieves a teacher by ID.
func (s *TeacherService) GetByID(ctx context.Context, id int) (*model.Teacher, error) {
	return s.teacherRepo.GetByID(ctx, id)
}

// GetByEmail retrieves a teacher by email.
func (s *TeacherService) GetByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	return s.teacherRepo.GetByEmail(ctx, email)
}
