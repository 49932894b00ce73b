// Package auth 负责解析调用方身份：用户使用 Bearer JWT，
// 内部自动化回调使用共享密钥。
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ReasonUnauthorized 在无法解析出有效用户 ID 时返回。
const ReasonUnauthorized = "UNAUTHORIZED"

// ErrInvalidToken 表示凭证校验失败。
var ErrInvalidToken = errors.New("invalid token")

// Claims 为登录流程签发的 token 载荷。
type Claims struct {
	UserID string `json:"userId"`
	jwtv5.RegisteredClaims
}

// Gate 校验 HS256 用户 token。
type Gate struct {
	secret []byte
	issuer string
}

// NewGate 根据 auth 配置构造 Gate。
func NewGate(cfg configloader.AuthConfig) (*Gate, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth gate: jwt secret is required")
	}
	return &Gate{secret: []byte(cfg.JWTSecret), issuer: cfg.JWTIssuer}, nil
}

func (g *Gate) keyFunc(token *jwtv5.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwtv5.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return g.secret, nil
}

// Middleware 校验 Authorization 头并将 owner id 写入上下文。
func (g *Gate) Middleware() middleware.Middleware {
	verify := jwt.Server(
		g.keyFunc,
		jwt.WithSigningMethod(jwtv5.SigningMethodHS256),
		jwt.WithClaims(func() jwtv5.Claims { return &Claims{} }),
	)
	return func(next middleware.Handler) middleware.Handler {
		return verify(func(ctx context.Context, req interface{}) (interface{}, error) {
			raw, ok := jwt.FromContext(ctx)
			if !ok {
				return nil, kerrors.Unauthorized(ReasonUnauthorized, "missing credentials")
			}
			claims, ok := raw.(*Claims)
			if !ok {
				return nil, kerrors.Unauthorized(ReasonUnauthorized, "invalid credentials")
			}
			ownerID, err := g.ownerFromClaims(claims)
			if err != nil {
				return nil, kerrors.Unauthorized(ReasonUnauthorized, "invalid credentials")
			}
			return next(WithOwner(ctx, ownerID), req)
		})
	}
}

// ParseToken 在中间件链之外校验原始 token（用于 websocket 升级）。
func (g *Gate) ParseToken(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwtv5.ParseWithClaims(raw, claims, g.keyFunc, jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	return g.ownerFromClaims(claims)
}

// IssueToken 为 userID 签发 token，供工具与测试使用；
// 线上 token 由登录流程使用相同密钥签发。
func (g *Gate) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    g.issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(g.secret)
}

func (g *Gate) ownerFromClaims(claims *Claims) (uuid.UUID, error) {
	if g.issuer != "" && claims.Issuer != g.issuer {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

type ownerKey struct{}

// WithOwner 将已认证的 owner id 写入 ctx。
func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext 返回 gate 写入的 owner id。
func OwnerFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ownerKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
