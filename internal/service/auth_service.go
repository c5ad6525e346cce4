package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/pkg/auth"
)

type UserRepository interface {
	// Create persists the user together with its role profiles in one
	// transaction. Returns domain.ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetDoctorInformation(ctx context.Context, userID uuid.UUID) (*domain.DoctorInformation, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event *domain.OutboxEvent) error
}

type AuthService struct {
	userRepo   UserRepository
	outboxRepo OutboxRepository
	jwtManager *auth.JWTManager
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, outboxRepo OutboxRepository, jwtManager *auth.JWTManager, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, outboxRepo: outboxRepo, jwtManager: jwtManager, log: log}
}

type RegisterCommand struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	Role                 domain.Role

	// Patient profile fields, required for every registration. A doctor
	// registers with a patient profile as well, so a single account can
	// act in both capacities.
	Gender             domain.Gender
	Height             int
	Weight             int
	BirthDate          time.Time
	Diseases           string
	PreviousTreatments string

	// Doctor profile fields, required when Role is doctor.
	Grade      int
	Speciality string
}

// Register validates the role-conditional payload, creates the user with
// its profiles atomically, and enqueues an email-verification event.
// Email delivery itself is the notification consumer's problem.
func (s *AuthService) Register(ctx context.Context, cmd *RegisterCommand) (*domain.User, error) {
	if err := validateRegister(cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Name:         cmd.Name,
		Email:        cmd.Email,
		PasswordHash: string(hash),
		IsPatient:    true,
		IsDoctor:     cmd.Role == domain.RoleDoctor,
		PatientInformation: &domain.PatientInformation{
			Gender:             cmd.Gender,
			Height:             cmd.Height,
			Weight:             cmd.Weight,
			BirthDate:          cmd.BirthDate,
			Diseases:           cmd.Diseases,
			PreviousTreatments: cmd.PreviousTreatments,
		},
	}
	if cmd.Role == domain.RoleDoctor {
		user.DoctorInformation = &domain.DoctorInformation{
			Grade:      cmd.Grade,
			Speciality: cmd.Speciality,
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.enqueueEvent(ctx, domain.EventUserRegistered, map[string]any{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"name":    user.Name,
	})

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.Bool("is_doctor", user.IsDoctor),
	)

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Burn a bcrypt round anyway so response time does not reveal
		// whether the email exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		IsPatient: user.IsPatient,
		IsDoctor:  user.IsDoctor,
	})
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(&domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		IsPatient: user.IsPatient,
		IsDoctor:  user.IsDoctor,
	})
}

func (s *AuthService) enqueueEvent(ctx context.Context, eventType domain.EventType, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshaling outbox payload", zap.Error(err))
		return
	}
	event := &domain.OutboxEvent{Type: eventType, Payload: raw}
	if err := s.outboxRepo.Enqueue(ctx, event); err != nil {
		// The registration already committed; a lost notification must not
		// fail the request.
		s.log.Error("enqueueing outbox event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func validateRegister(cmd *RegisterCommand) error {
	fields := map[string]string{}

	if cmd.Name == "" {
		fields["name"] = "name is required"
	}
	if cmd.Email == "" {
		fields["email"] = "email is required"
	} else if _, err := mail.ParseAddress(cmd.Email); err != nil {
		fields["email"] = "email must be a valid address"
	}
	if cmd.Password == "" {
		fields["password"] = "password is required"
	} else if len(cmd.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	} else if cmd.Password != cmd.PasswordConfirmation {
		fields["password_confirmation"] = "password confirmation does not match"
	}
	if !cmd.Role.IsValid() {
		fields["role"] = "role must be patient or doctor"
	}

	if !cmd.Gender.IsValid() {
		fields["gender"] = "gender must be male, female or other"
	}
	if cmd.Height <= 0 {
		fields["height"] = "height is required"
	}
	if cmd.Weight <= 0 {
		fields["weight"] = "weight is required"
	}
	if cmd.BirthDate.IsZero() {
		fields["birth"] = "birth date is required"
	} else if cmd.BirthDate.After(time.Now()) {
		fields["birth"] = "birth date cannot be in the future"
	}
	if cmd.Diseases == "" {
		fields["diseases"] = "diseases is required"
	}
	if cmd.PreviousTreatments == "" {
		fields["previous_treatments"] = "previous treatments is required"
	}

	if cmd.Role == domain.RoleDoctor {
		if cmd.Grade < domain.DoctorGradeMin || cmd.Grade > domain.DoctorGradeMax {
			fields["grade"] = fmt.Sprintf("grade must be between %d and %d", domain.DoctorGradeMin, domain.DoctorGradeMax)
		}
		if cmd.Speciality == "" {
			fields["speciality"] = "speciality is required"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
