package services

import (
	"errors"
	"time"

	"github.com/fitquest-app/fitquest_api/dto"
	"github.com/fitquest-app/fitquest_api/model"
	"github.com/fitquest-app/fitquest_api/shared"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService issues JWTs and guards the API routes. Token storage on the
// device is the client's concern.
type AuthService struct {
	context.DefaultService

	sqlSvc *PostgresService
	jwtSvc *JWTService
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	return nil
}

func (svc *AuthService) Register(req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid registration request")
	}

	if _, err := svc.sqlSvc.GetUserByEmail(req.Email); err == nil {
		return nil, shared.NewConflictError(errors.New("email taken"), "Email is already registered")
	}
	if _, err := svc.sqlSvc.GetUserByUsername(req.Username); err == nil {
		return nil, shared.NewConflictError(errors.New("username taken"), "Username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to create account")
	}

	id, _ := uuid.NewV7()
	now := time.Now()
	user := &model.User{
		ID:        id.String(),
		Email:     req.Email,
		Username:  req.Username,
		Password:  string(hash),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := svc.sqlSvc.CreateUser(user); err != nil {
		return nil, shared.NewInternalError(err, "Failed to create account")
	}

	return &dto.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

func (svc *AuthService) Login(req dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid login request")
	}

	user, err := svc.sqlSvc.GetUserByEmailOrUsername(req.EmailOrUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewUnauthorizedError(err, "Invalid credentials")
		}
		return nil, shared.NewInternalError(err, "Failed to log in")
	}

	if !user.IsActive {
		return nil, shared.NewUnauthorizedError(errors.New("account inactive"), "Account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, shared.NewUnauthorizedError(err, "Invalid credentials")
	}

	token, expiresAt, err := svc.jwtSvc.GenerateToken(user.ID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to issue token")
	}

	now := time.Now()
	user.LastLogin = &now
	_ = svc.sqlSvc.UpdateUser(user)

	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
		Username:    user.Username,
	}, nil
}

// RequiredAuth resolves the bearer token and stores the user id on the
// request context.
func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		token, err := svc.jwtSvc.ExtractTokenFromHeader(authHeader)
		if err != nil {
			return shared.ResponseJSON(c, fiber.StatusUnauthorized, "Unauthorized", err.Error())
		}

		userID, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil {
			return shared.ResponseJSON(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid JWT token")
		}

		c.Locals(shared.UserID, userID)
		return c.Next()
	}
}
