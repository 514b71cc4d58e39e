package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"letterdesk/internal/authz"
	"letterdesk/internal/errors"
	"letterdesk/internal/model"
)

const (
	claimsContextKey = "claims"
	actorContextKey  = "actor"
)

// JWTMiddleware validates the bearer access token and stores its claims in the context.
func JWTMiddleware(svc *JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return svc.ValidateAccessToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "missing, invalid or expired token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// UserLookup loads the current record of a token's subject. Implementations
// wrap a missing user in errors.ErrNotFound.
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// ActorMiddleware rejects revoked access tokens and exposes the Actor to handlers.
// The actor's role is read from the user record, so deleted or demoted users
// lose access before their token expires. It must run after JWTMiddleware.
func ActorMiddleware(store TokenStoreInterface, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return unauthorized()
			}
			ctx := c.Request().Context()
			revoked, _ := store.IsAccessTokenBlacklisted(ctx, claims.ID)
			if revoked {
				return unauthorized()
			}

			user, err := users.FindByID(ctx, claims.UserID)
			if err != nil {
				if stderrors.Is(err, errors.ErrNotFound) {
					return unauthorized()
				}
				return fmt.Errorf("load token subject: %w", err)
			}
			if user == nil {
				return unauthorized()
			}
			SetActor(c, Actor{UserID: user.ID, Email: user.Email, Role: user.Role})
			return next(c)
		}
	}
}

// RequireAction allows the request only when the actor's role permits action.
func RequireAction(action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return unauthorized()
			}
			if !actor.Can(action) {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: errors.ErrForbidden.Error(),
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}

// ClaimsFrom returns the validated token claims of the request.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// SetActor stores the acting user of the request.
func SetActor(c echo.Context, actor Actor) {
	c.Set(actorContextKey, actor)
}

// ActorFrom returns the acting user of the request.
func ActorFrom(c echo.Context) (Actor, bool) {
	actor, ok := c.Get(actorContextKey).(Actor)
	return actor, ok
}

// RemainingTTL is the time left before the claims expire.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "missing, invalid or expired token",
		Code:  "UNAUTHORIZED",
	})
}
