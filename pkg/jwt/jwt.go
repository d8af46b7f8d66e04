package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/DEV-OpenSCI/desci-form/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// TokenTypeSession 表单会话令牌
const TokenTypeSession = "session"

const issuer = "desci-form"

// Claims 会话令牌声明
type Claims struct {
	SessionID string `json:"session_id"`
	Locale    string `json:"locale,omitempty"`
	TokenType string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// Manager 会话令牌管理器
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager 创建令牌管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(cfg.SessionSecret), ttl: ttl}
}

// TTL 令牌有效期
func (m *Manager) TTL() time.Duration { return m.ttl }

// GenerateSessionToken 为表单会话签发令牌
func (m *Manager) GenerateSessionToken(sessionID, locale string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		Locale:    locale,
		TokenType: TokenTypeSession,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
