package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/task-management-system/domain/user"
	"github.com/example/task-management-system/events"
	"github.com/example/task-management-system/modules/storage"
)

// Config holds the auth module settings taken from the process configuration.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthModule provides the credential store and token services.
type AuthModule struct {
	cfg      Config
	storage  *storage.PluginModule
	service  *AuthService
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.UsePluginModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(cfg Config, logger types.Logger) *AuthModule {
	return &AuthModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// SetPlugin receives the storage plugin before Start.
func (m *AuthModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "storage" {
		return
	}
	sp, ok := plugin.(*storage.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for storage", "alias", alias)
		return
	}
	m.storage = sp
}

// SetEventBus receives the event bus used to publish UserRegistered.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents lists the events this module publishes.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
	}
}

// Start builds the service on top of the shared database.
func (m *AuthModule) Start(_ context.Context) error {
	if m.storage == nil || m.storage.DB() == nil {
		return fmt.Errorf("storage plugin not set - ensure 'storage' plugin is registered")
	}

	m.service = NewAuthService(
		NewUserRepository(m.storage.DB()),
		NewPasswordHasher(m.cfg.BcryptCost),
		NewJWTManager(JWTConfig{
			SecretKey:     m.cfg.JWTSecret,
			TokenDuration: m.cfg.TokenTTL,
		}),
	)

	m.logger.Info("Auth module started", "tokenTTL", m.cfg.TokenTTL.String(), "bcryptCost", m.cfg.BcryptCost)
	return nil
}

// Stop shuts down the module. The database belongs to the storage plugin.
func (m *AuthModule) Stop(_ context.Context) error {
	m.logger.Info("Auth module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-users", json.Unmarshal, json.Marshal, m.handleListUsers,
	); err != nil {
		return fmt.Errorf("failed to register list-users service: %w", err)
	}

	m.logger.Info("Registered auth services", "services", []string{"register", "login", "validate-token", "list-users"})
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	m.logger.Info("User registered", "userID", user.ID, "role", user.Role)

	if m.eventBus != nil {
		event := events.UserRegisteredEvent{
			UserID:       user.ID,
			Username:     user.Username,
			Role:         string(user.Role),
			RegisteredAt: user.CreatedAt,
		}
		if err := events.UserRegisteredV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish UserRegistered event", "userID", user.ID, "error", err)
		}
	}

	return RegisterResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	result, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		Token: result.Token,
		User: UserInfo{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
			Role:     string(result.User.Role),
		},
	}, nil
}

// handleValidateToken reports verification failures in the response body
// rather than as an error, so callers can tell expired from invalid.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := validationErrInvalid
		if errors.Is(err, ErrExpiredToken) {
			errMsg = validationErrExpired
		}
		return ValidateTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Role:     string(claims.Role),
		Username: claims.Username,
	}, nil
}

func (m *AuthModule) handleListUsers(ctx context.Context, _ ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.service.ListUsers(ctx)
	if err != nil {
		return ListUsersResponse{}, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return ListUsersResponse{Users: users}, nil
}
