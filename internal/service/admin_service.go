package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// AdminService handles admin business logic.
type AdminService struct {
	adminRepo *repository.AdminRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo}
}

// GetByEmail retrieves an admin by email.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.adminRepo.GetByEmail(ctx, email)
}

// GetByID retrieves an admin by ID.
func (s *AdminService) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return s.adminRepo.GetByID(ctx, id)
}

// GetPermissions retrieves permission codes for an admin's role.
func (s *AdminService) GetPermissions(ctx context.Context, roleID int) ([]string, error) {
	return s.adminRepo.GetPermissions(ctx, roleID)
}

// Create inserts a new admin. admin.PasswordHash carries the plaintext password on input.
func (s *AdminService) Create(ctx context.Context, admin *model.Admin, bcryptCost int) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.PasswordHash), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin.PasswordHash = string(hashed)
	return s.adminRepo.Create(ctx, admin)
}

// ResolveRole returns the ID of the named role.
func (s *AdminService) ResolveRole(ctx context.Context, name string) (int, error) {
	return s.adminRepo.GetRoleIDByName(ctx, name)
}

// GrantAllPermissions makes sure every known permission exists and is granted to roleID.
func (s *AdminService) GrantAllPermissions(ctx context.Context, roleID int) (int, error) {
	codes := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		codes[i] = string(p)
	}
	if err := s.adminRepo.GrantPermissions(ctx, roleID, codes); err != nil {
		return 0, err
	}
	return len(codes), nil
}
