package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"roadeye/config"
	"roadeye/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles all authentication-related database operations
type AuthService struct {
	db            *sql.DB
	jwtSecret     []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService creates a new authentication service instance
func NewAuthService(d *Database, cfg *config.Config) *AuthService {
	return &AuthService{
		db:            d.db,
		jwtSecret:     []byte(cfg.JWTSecret),
		accessExpiry:  cfg.AccessTokenExpiry,
		refreshExpiry: cfg.RefreshTokenExpiry,
	}
}

// CreateUser creates a new user with email/password authentication
func (s *AuthService) CreateUser(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	if !isValidEmail(req.Email) {
		return nil, errors.New("invalid email format")
	}

	exists, err := s.userExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, errors.New("user already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, password_hash)
		VALUES (?, ?, ?, ?, ?)`,
		userID, req.Email, req.DisplayName, models.RoleCitizen, string(passwordHash))
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &models.User{
		ID:          userID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        models.RoleCitizen,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role, created_at, updated_at
		FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// Login authenticates with email/password and returns a token pair
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, string, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role, password_hash, created_at, updated_at
		FROM users WHERE email = ?`, req.Email).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", "", errors.New("invalid credentials")
		}
		return nil, "", "", fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", "", errors.New("invalid credentials")
	}
	u.PasswordHash = ""

	access, refresh, err := s.GenerateTokenPair(ctx, u.ID, u.Role)
	if err != nil {
		return nil, "", "", err
	}
	return &u, access, refresh, nil
}

// GenerateTokenPair generates both access and refresh tokens and stores
// their hashes
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID, role string) (string, string, error) {
	now := time.Now()
	accessExpiry := now.Add(s.accessExpiry)
	refreshExpiry := now.Add(s.refreshExpiry)

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"type":    "access",
		"exp":     accessExpiry.Unix(),
		"iat":     now.Unix(),
	})
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return "", "", err
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"type":    "refresh",
		"exp":     refreshExpiry.Unix(),
		"iat":     now.Unix(),
	})
	refreshTokenString, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return "", "", err
	}

	if err := s.storeTokens(ctx, userID, accessTokenString, refreshTokenString, accessExpiry, refreshExpiry); err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

// ValidateToken validates an access token and returns the user id and role
func (s *AuthService) ValidateToken(tokenString string) (string, string, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return "", "", err
	}

	tokenType, _ := claims["type"].(string)
	if tokenType == "refresh" {
		return "", "", errors.New("cannot use refresh token for authentication")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", "", errors.New("invalid user id in token")
	}
	role, _ := claims["role"].(string)

	if err := s.verifyTokenInDB(userID, tokenString, "access"); err != nil {
		return "", "", err
	}

	return userID, role, nil
}

// ValidateRefreshToken validates a refresh token and returns the user id
// and role
func (s *AuthService) ValidateRefreshToken(tokenString string) (string, string, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return "", "", err
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return "", "", errors.New("not a refresh token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", "", errors.New("invalid user id in token")
	}
	role, _ := claims["role"].(string)

	if err := s.verifyTokenInDB(userID, tokenString, "refresh"); err != nil {
		return "", "", err
	}

	return userID, role, nil
}

// InvalidateToken removes a token from the database
func (s *AuthService) InvalidateToken(ctx context.Context, userID, tokenString string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM auth_tokens WHERE user_id = ? AND token_hash = ?",
		userID, hashToken(tokenString))
	return err
}

func (s *AuthService) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) storeTokens(ctx context.Context, userID, accessToken, refreshToken string, accessExpiry, refreshExpiry time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO auth_tokens (user_id, token_hash, token_type, expires_at)
		VALUES (?, ?, 'access', ?)`,
		userID, hashToken(accessToken), accessExpiry)
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO auth_tokens (user_id, token_hash, token_type, expires_at)
		VALUES (?, ?, 'refresh', ?)`,
		userID, hashToken(refreshToken), refreshExpiry)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tx.Commit()
}

func (s *AuthService) verifyTokenInDB(userID, tokenString, tokenType string) error {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM auth_tokens
		WHERE user_id = ? AND token_hash = ? AND token_type = ? AND expires_at > NOW()`,
		userID, hashToken(tokenString), tokenType).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}
	if count == 0 {
		return errors.New("token not found or expired")
	}
	return nil
}

func (s *AuthService) userExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query users: %w", err)
	}
	return count > 0, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
