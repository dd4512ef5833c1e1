package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"reservo/internal/domain"
)

// Claims is the bearer token payload. Subject is the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	JWTSecret string
	// TrustHeaders takes the actor from x-actor-id and x-actor-role when no
	// secret is set. Only for deployments behind a gateway that sets them.
	TrustHeaders bool
}

// Authenticator resolves the calling actor from request metadata. With a secret
// it verifies an HS256 bearer token. Without one, callers are anonymous unless
// header trust was enabled.
type Authenticator struct {
	secret       []byte
	trustHeaders bool
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	return &Authenticator{
		secret:       []byte(strings.TrimSpace(cfg.JWTSecret)),
		trustHeaders: cfg.TrustHeaders,
	}
}

var errMissingBearer = errors.New("authorization must be a bearer token")

// Actor returns the caller, ok=false when the request carries no credentials.
func (a *Authenticator) Actor(ctx context.Context) (domain.Actor, bool, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	if len(a.secret) == 0 {
		if !a.trustHeaders {
			return domain.Actor{}, false, nil
		}
		id := firstValue(md, "x-actor-id")
		if id == "" {
			return domain.Actor{}, false, nil
		}
		role, err := domain.ParseRole(firstValue(md, "x-actor-role"))
		if err != nil {
			return domain.Actor{}, false, err
		}
		return domain.Actor{ID: id, Role: role}, true, nil
	}

	header := firstValue(md, "authorization")
	if header == "" {
		return domain.Actor{}, false, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		raw, ok = strings.CutPrefix(header, "bearer ")
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Actor{}, false, errMissingBearer
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Actor{}, false, err
	}

	id := strings.TrimSpace(claims.Subject)
	if id == "" {
		return domain.Actor{}, false, errors.New("token has no subject")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Actor{}, false, err
	}
	return domain.Actor{ID: id, Role: role}, true, nil
}

// UnaryInterceptor attaches the caller to the context. Requests without
// credentials pass through anonymously; handlers that need an actor reject them.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		actor, ok, err := a.Actor(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		}
		if ok {
			ctx = ContextWithActor(ctx, actor)
		}
		return handler(ctx, req)
	}
}

// IssueToken signs an HS256 token for actor valid for ttl from now.
func IssueToken(secret string, actor domain.Actor, ttl time.Duration, now time.Time) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}
	if _, err := domain.ParseRole(string(actor.Role)); err != nil {
		return "", err
	}
	if strings.TrimSpace(actor.ID) == "" {
		return "", errors.New("actor id is required")
	}

	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  actor.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

func firstValue(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
