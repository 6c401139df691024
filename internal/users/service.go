// Package users proxies account management to the backend, applying the
// company scoping the dashboard relies on.
package users

import (
	"context"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Backend is the slice of the upstream client this package needs.
type Backend interface {
	ListUsers(ctx context.Context, token string) ([]upstream.User, error)
	CreateUser(ctx context.Context, token string, in upstream.UserCreate) (upstream.User, error)
	UpdateUser(ctx context.Context, token string, id int64, in upstream.UserUpdate) (upstream.User, error)
	DeleteUser(ctx context.Context, token string, id int64) error
	ActivateUser(ctx context.Context, token string, id int64) error
}

// Service applies role scoping on top of the backend's account endpoints.
type Service struct {
	backend Backend
}

// NewService constructs a Service.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// List returns accounts visible to the principal. Company and admin
// principals only see their own company's accounts regardless of what the
// backend returns.
func (s *Service) List(ctx context.Context, token string, principal *rbac.Principal) ([]upstream.User, error) {
	users, err := s.backend.ListUsers(ctx, token)
	if err != nil {
		return nil, err
	}
	if principal == nil || principal.Role == rbac.RoleSuperAdmin {
		return users, nil
	}
	scoped := make([]upstream.User, 0, len(users))
	for _, u := range users {
		if principal.SameCompany(u.CompanyID) {
			scoped = append(scoped, u)
		}
	}
	return scoped, nil
}

// Create registers an account. Non-super-admin principals always create
// inside their own company; the requested role cannot outrank the creator.
func (s *Service) Create(ctx context.Context, token string, principal *rbac.Principal, in upstream.UserCreate) (upstream.User, error) {
	role := rbac.ParseRole(in.Role)
	if principal != nil && principal.Role != rbac.RoleSuperAdmin {
		in.CompanyID = principal.CompanyID
		if role == rbac.RoleSuperAdmin || role == rbac.RoleCompany {
			return upstream.User{}, fmt.Errorf("%w: cannot create %s accounts", httpx.ErrForbidden, role)
		}
	}
	in.Role = string(role)
	return s.backend.CreateUser(ctx, token, in)
}

// Update rewrites account fields.
func (s *Service) Update(ctx context.Context, token string, id int64, in upstream.UserUpdate) (upstream.User, error) {
	return s.backend.UpdateUser(ctx, token, id, in)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	return s.backend.DeleteUser(ctx, token, id)
}

// Activate re-enables a deactivated account.
func (s *Service) Activate(ctx context.Context, token string, id int64) error {
	return s.backend.ActivateUser(ctx, token, id)
}
