package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

// ContextUserID is the gin context key holding the caller's identity
const ContextUserID = "user_id"

const contextRole = "user_role"

// Claims is the bearer token payload. Sub is the user id.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenAuthority signs and verifies HS256 bearer tokens
type TokenAuthority struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenAuthority(secret, issuer string, ttl time.Duration) *TokenAuthority {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &TokenAuthority{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (a *TokenAuthority) Issue(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *TokenAuthority) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Sub == "" {
		claims.Sub = claims.Subject
	}
	if claims.Sub == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// IdentityMiddleware resolves an optional bearer token. Requests without one continue anonymously;
// a malformed or expired token is rejected.
func IdentityMiddleware(authority *TokenAuthority) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Missing bearer token"})
			return
		}

		claims, err := authority.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid token",
				Details: err.Error(),
			})
			return
		}

		c.Set(ContextUserID, claims.Sub)
		c.Set(contextRole, claims.Role)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUserID(c); !ok {
			return
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per caller (user id, or client IP for anonymous callers).
// Idle entries are swept while serving requests.
func RateLimiter(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = perMinute
	}

	var (
		mu        sync.Mutex
		visitors  = make(map[string]*visitor)
		lastSweep = time.Now()
	)
	every := rate.Every(time.Minute / time.Duration(perMinute))
	idle := 3 * time.Minute

	return func(c *gin.Context) {
		key := currentUserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		now := time.Now()
		mu.Lock()
		if now.Sub(lastSweep) > time.Minute {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > idle {
					delete(visitors, k)
				}
			}
			lastSweep = now
		}
		v, exists := visitors[key]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(every, burst)}
			visitors[key] = v
		}
		v.lastSeen = now
		mu.Unlock()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Message: "Too many requests"})
			return
		}
		c.Next()
	}
}
