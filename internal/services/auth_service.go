package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/models"
)

type AuthService struct {
	db     *gorm.DB
	config *config.Config
	team   *TeamService
}

func NewAuthService(db *gorm.DB, cfg *config.Config, team *TeamService) *AuthService {
	return &AuthService{db: db, config: cfg, team: team}
}

// JWT Claims
type Claims struct {
	UserID uuid.UUID       `json:"userId"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// HashPassword creates a bcrypt hash of the password
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func (s *AuthService) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a JWT token for a user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	expirationTime := time.Now().Add(time.Duration(s.config.JWTExpiration) * time.Hour)

	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.config.AppName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Register creates a new account and immediately reconciles any pending
// team invitations sent to the same email.
func (s *AuthService) Register(req models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("email already registered")
	}

	role := req.Role
	switch role {
	case models.RoleStudent, models.RoleMentor:
	case "":
		role = models.RoleStudent
	default:
		return nil, apperr.Validation("invalid role %q", role)
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}

	// Invitations sent before the account existed are honored here.
	if s.team != nil {
		if err := s.team.ReconcileOnRegistration(user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// Login authenticates a user and returns a signed token
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, "", apperr.NotFound("invalid email or password")
	}

	if !s.CheckPassword(password, user.PasswordHash) {
		return nil, "", apperr.Validation("invalid email or password")
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// GetUser fetches a user by ID
func (s *AuthService) GetUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, apperr.NotFound("user not found")
	}
	return &user, nil
}

// UpdateProfile applies partial profile updates
func (s *AuthService) UpdateProfile(userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before setting a new one
func (s *AuthService) ChangePassword(userID uuid.UUID, req models.ChangePasswordRequest) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}

	if !s.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return apperr.Validation("current password is incorrect")
	}

	hash, err := s.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	return s.db.Model(user).Update("password_hash", hash).Error
}
