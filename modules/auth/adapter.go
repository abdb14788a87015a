package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-monolith/mono"
	monoerrors "github.com/go-monolith/mono/pkg/errors"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/task-management-system/domain/user"
)

// AuthPort defines the authentication operations other modules use.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account via the register service.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"register",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("register", err)
	}
	return &resp, nil
}

// Login authenticates via the login service.
func (a *AuthAdapter) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"login",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("login", err)
	}
	return &resp, nil
}

// ValidateToken validates a session token and returns its claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		if resp.Error == validationErrExpired {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	return &domain.Claims{
		UserID:   resp.UserID,
		Role:     domain.Role(resp.Role),
		Username: resp.Username,
	}, nil
}

// ListUsers retrieves all users via the list-users service.
func (a *AuthAdapter) ListUsers(ctx context.Context) ([]domain.User, error) {
	req := ListUsersRequest{}
	var resp ListUsersResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-users",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, restoreError("list-users", err)
	}
	return resp.Users, nil
}

// remoteError carries a handler failure across the request-reply boundary,
// where only the error text survives. sentinel is nil when the text does not
// start with one of this package's sentinels.
type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }

// restoreError maps a service error back onto this package's sentinels so
// callers can use errors.Is. Only a handler error whose message begins with
// a sentinel's text is restored; transport failures are wrapped as-is.
func restoreError(service string, err error) error {
	re, ok := monoerrors.GetRemoteError(err)
	if !ok {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	for _, sentinel := range []error{ErrUserExists, ErrInvalidCredentials, ErrValidation, ErrExpiredToken, ErrInvalidToken} {
		if strings.HasPrefix(re.Message, sentinel.Error()) {
			return &remoteError{sentinel: sentinel, msg: re.Message}
		}
	}
	return &remoteError{msg: re.Message}
}
