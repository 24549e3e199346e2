package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DataScope is the department visibility granted by a role.
type DataScope string

const (
	DataScopeAll          DataScope = "1"
	DataScopeCustom       DataScope = "2"
	DataScopeDept         DataScope = "3"
	DataScopeDeptAndChild DataScope = "4"
	DataScopeSelf         DataScope = "5"
)

func (d DataScope) Valid() bool {
	switch d {
	case DataScopeAll, DataScopeCustom, DataScopeDept, DataScopeDeptAndChild, DataScopeSelf:
		return true
	}
	return false
}

// RoleGrant is one enabled role held by a principal.
type RoleGrant struct {
	RoleID        int64     `json:"role_id"`
	RoleKey       string    `json:"role_key"`
	DataScope     DataScope `json:"data_scope"`
	IsAdmin       bool      `json:"is_admin"`
	CustomDeptIDs []int64   `json:"custom_dept_ids,omitempty"`
}

// Principal is the authenticated actor of a request. It is passed
// explicitly into every service call.
type Principal struct {
	ID          int64       `json:"id"`
	UserName    string      `json:"user_name"`
	DeptID      int64       `json:"dept_id"`
	Superuser   bool        `json:"superuser"`
	Roles       []RoleGrant `json:"roles"`
	Permissions []string    `json:"permissions,omitempty"`
}

func (p *Principal) RoleIDs() []int64 {
	ids := make([]int64, 0, len(p.Roles))
	for _, r := range p.Roles {
		ids = append(ids, r.RoleID)
	}
	return ids
}

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ContextPrincipalKey).(*Principal)
	return p, ok && p != nil
}

// Credentials is what login needs from the user store.
type Credentials struct {
	UserID       int64
	UserName     string
	PasswordHash string
	Status       string
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID int64, userName string) (string, error)
	GenerateRefreshToken(userID int64, userName string) (string, error)
	ValidateToken(tokenString, tokenType string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
