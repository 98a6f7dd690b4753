package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"waha-crm/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalid")
)

// AuthService autentica al operador único de la consola y administra su sesión.
type AuthService struct {
	logger   *zap.Logger
	username string
	password string
	secret   []byte
	ttl      time.Duration
	issuer   string
	sessions SessionStore
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewAuthService(logger *zap.Logger, username, password, secret string, ttl time.Duration, sessions SessionStore) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	return &AuthService{
		logger:   logger,
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   "waha-crm",
		sessions: sessions,
	}
}

// Login valida credenciales y emite el token de sesión firmado.
func (s *AuthService) Login(username, password string) (string, domain.Operator, error) {
	if len(s.secret) == 0 {
		return "", domain.Operator{}, ErrSessionInvalid
	}
	if !s.credentialsMatch(username, password) {
		return "", domain.Operator{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := sessionClaims{
		Username: s.username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   s.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", domain.Operator{}, err
	}
	if err := s.sessions.Store(jti, s.username, s.ttl); err != nil {
		return "", domain.Operator{}, err
	}
	return signed, domain.Operator{Username: s.username}, nil
}

// Check valida el token de sesión; un token vacío o inválido no es un error,
// es simplemente "no autenticado".
func (s *AuthService) Check(token string) (domain.Operator, bool) {
	claims, err := s.parseToken(token)
	if err != nil {
		return domain.Operator{}, false
	}
	if claims.ID == "" {
		return domain.Operator{}, false
	}
	ok, err := s.sessions.Exists(claims.ID)
	if err != nil || !ok {
		return domain.Operator{}, false
	}
	return domain.Operator{Username: claims.Username}, true
}

// Logout revoca la sesión. Nunca falla hacia afuera: un error del store se
// registra y la sesión del lado del cliente se limpia igual.
func (s *AuthService) Logout(token string) {
	claims, err := s.parseToken(token)
	if err != nil || claims.ID == "" {
		return
	}
	if err := s.sessions.Revoke(claims.ID); err != nil {
		s.logger.Warn("session revoke failed", zap.Error(err))
	}
}

// SessionTTL expone el TTL configurado para la cookie de sesión.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

func (s *AuthService) credentialsMatch(username, password string) bool {
	if strings.TrimSpace(username) == "" || password == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return false
	}
	// SENHA puede venir como hash bcrypt o como texto plano.
	if strings.HasPrefix(s.password, "$2a$") || strings.HasPrefix(s.password, "$2b$") || strings.HasPrefix(s.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(s.password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}

func (s *AuthService) parseToken(tokenString string) (sessionClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return sessionClaims{}, ErrSessionInvalid
	}
	var claims sessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return sessionClaims{}, ErrSessionInvalid
	}
	if claims.Issuer != s.issuer || claims.Subject != claims.Username {
		return sessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}
