package converter

import (
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"
)

// StaffToResponse converts a StaffUser entity to StaffResponse DTO
func StaffToResponse(user *entity.StaffUser) *dto.StaffResponse {
	if user == nil {
		return nil
	}

	role := "staff"
	if user.RoleID == entity.RoleIDAdmin {
		role = "admin"
	}

	return &dto.StaffResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
