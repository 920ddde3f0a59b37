package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/rbac"
	"freelancehub/pkg/util"
)

type AuthService struct {
	users     UserStore
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthService(users UserStore, jwtSecret string, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*model.User, error) {
	// 不允许自助注册 admin
	if role != rbac.RoleClient && role != rbac.RoleFreelancer {
		return nil, apperror.ValidationFailed(map[string]string{"role": "must be client or freelancer"})
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperror.Conflict("email already registered")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int("user_id", user.ID), zap.String("role", role))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, apperror.Unauthenticated("invalid email or password")
		}
		return "", nil, err
	}

	if !util.CheckPassword(password, user.PasswordHash) {
		return "", nil, apperror.Unauthenticated("invalid email or password")
	}

	token, err := util.GenerateJWT(user.ID, user.Role, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
