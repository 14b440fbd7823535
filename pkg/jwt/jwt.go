// Package jwt предоставляет сервисные JWT токены на основе RS256.
// send-money подписывает короткоживущие токены приватным ключом,
// payments API проверяет их публичным ключом.
package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrSigningUnavailable — менеджер создан без приватного ключа.
var ErrSigningUnavailable = errors.New("приватный ключ не загружен: подпись токенов недоступна")

// Claims содержит данные сервисного токена.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"` // Например "payments:read payments:write"
}

// Manager выпускает и проверяет сервисные токены.
type Manager struct {
	privateKey *rsa.PrivateKey // только у стороны, выпускающей токены
	publicKey  *rsa.PublicKey  // только у стороны, проверяющей токены
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

// Config содержит параметры для создания Manager.
// Должен быть задан хотя бы один из путей к ключам.
type Config struct {
	PrivateKeyPath string
	PublicKeyPath  string
	Issuer         string
	Audience       string
	TokenTTL       time.Duration
}

// NewManager создаёт менеджер сервисных токенов.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.PrivateKeyPath == "" && cfg.PublicKeyPath == "" {
		return nil, fmt.Errorf("не задан ни приватный, ни публичный ключ JWT")
	}

	m := &Manager{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		tokenTTL: cfg.TokenTTL,
	}
	if m.tokenTTL <= 0 {
		m.tokenTTL = 5 * time.Minute
	}

	if cfg.PublicKeyPath != "" {
		publicKey, err := LoadPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки публичного ключа: %w", err)
		}
		m.publicKey = publicKey
	}

	if cfg.PrivateKeyPath != "" {
		privateKey, err := LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки приватного ключа: %w", err)
		}
		m.privateKey = privateKey
		if m.publicKey == nil {
			m.publicKey = &privateKey.PublicKey
		}
	}

	return m, nil
}

// Issue выпускает сервисный токен для subject (имя вызывающего сервиса).
func (m *Manager) Issue(subject, scope string) (string, time.Time, error) {
	if m.privateKey == nil {
		return "", time.Time{}, ErrSigningUnavailable
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scope: scope,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateToken проверяет подпись, срок действия, издателя и аудиторию токена.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if m.publicKey == nil {
			return nil, fmt.Errorf("публичный ключ не загружен")
		}
		return m.publicKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка валидации токена: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("невалидные claims токена")
	}

	return claims, nil
}

// CanSign возвращает true, если менеджер может подписывать токены.
func (m *Manager) CanSign() bool {
	return m.privateKey != nil
}

// =============================================================================
// TokenSource — кеширование токена на стороне клиента
// =============================================================================

// refreshMargin — токен перевыпускается, когда до истечения осталось меньше.
const refreshMargin = 30 * time.Second

// TokenSource выдаёт действующий токен, перевыпуская его по мере истечения.
// Безопасен для конкурентного использования.
type TokenSource struct {
	manager *Manager
	subject string
	scope   string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewTokenSource создаёт источник токенов для вызывающего сервиса.
func NewTokenSource(m *Manager, subject, scope string) *TokenSource {
	return &TokenSource{manager: m, subject: subject, scope: scope, now: time.Now}
}

// Token возвращает закешированный токен или выпускает новый.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(refreshMargin).Before(s.expiresAt) {
		return s.token, nil
	}

	token, expiresAt, err := s.manager.Issue(s.subject, s.scope)
	if err != nil {
		return "", err
	}
	s.token, s.expiresAt = token, expiresAt
	return token, nil
}

// =============================================================================
// Загрузка ключей
// =============================================================================

// LoadPrivateKey загружает RSA приватный ключ из PEM файла (PKCS#1 или PKCS#8).
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга приватного ключа: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("ключ не является RSA приватным ключом")
	}
	return rsaKey, nil
}

// LoadPublicKey загружает RSA публичный ключ из PEM файла (PKIX или PKCS#1).
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("ключ не является RSA публичным ключом")
	}
	return rsaKey, nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("не удалось декодировать PEM блок из %s", path)
	}
	return block, nil
}
