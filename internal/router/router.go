package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"

	"letterdesk/internal/auth"
	"letterdesk/internal/authz"
	"letterdesk/internal/handler"
	"letterdesk/internal/metrics"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Office     *handler.OfficeHandler
	Department *handler.DepartmentHandler
	Staff      *handler.StaffHandler
	LetterType *handler.LetterTypeHandler
	Template   *handler.TemplateHandler
	Letter     *handler.LetterHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, h Handlers, jwtService *auth.JWTService, tokens auth.TokenStoreInterface, users auth.UserLookup) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())
	e.Use(requestLogger())

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", metrics.Handler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)

	// Secured routes (require a valid, unrevoked access token)
	secured := api.Group("", auth.JWTMiddleware(jwtService), auth.ActorMiddleware(tokens, users))

	secured.GET("/me", h.Auth.Me)

	// Import routes come before /users/:id so the static segment wins.
	imports := secured.Group("/users/import", auth.RequireAction(authz.ImportUsers))
	imports.POST("", h.User.ImportUsers)
	imports.GET("/template", h.User.ImportTemplate)

	secured.GET("/users", h.User.ListUsers)
	secured.POST("/users", h.User.CreateUser)
	secured.GET("/users/:id", h.User.GetUser)
	secured.PUT("/users/:id", h.User.UpdateUser)
	secured.DELETE("/users/:id", h.User.DeleteUser)

	directory(secured.Group("/offices"), h.Office.List, h.Office.Get, h.Office.Create, h.Office.Update, h.Office.Delete)
	directory(secured.Group("/departments"), h.Department.List, h.Department.Get, h.Department.Create, h.Department.Update, h.Department.Delete)
	directory(secured.Group("/staff"), h.Staff.List, h.Staff.Get, h.Staff.Create, h.Staff.Update, h.Staff.Delete)
	directory(secured.Group("/letter-types"), h.LetterType.List, h.LetterType.Get, h.LetterType.Create, h.LetterType.Update, h.LetterType.Delete)

	templates := secured.Group("/templates")
	templates.GET("", h.Template.List)
	templates.GET("/:id", h.Template.Get)
	templates.GET("/:id/form", h.Template.Form)
	templates.POST("", h.Template.Create)
	templates.PUT("/:id", h.Template.Update)
	templates.DELETE("/:id", h.Template.Delete)

	letters := secured.Group("/letters")
	letters.GET("", h.Letter.List)
	letters.POST("", h.Letter.Create, auth.RequireAction(authz.CreateLetter))
	letters.GET("/:id", h.Letter.Get)
	letters.PUT("/:id", h.Letter.Update)
	letters.DELETE("/:id", h.Letter.Delete)
	letters.GET("/:id/history", h.Letter.History)
	letters.POST("/:id/submit", h.Letter.Submit)
	letters.POST("/:id/approve", h.Letter.Approve, auth.RequireAction(authz.ApproveLetter))
	letters.POST("/:id/reject", h.Letter.Reject, auth.RequireAction(authz.ApproveLetter))
}

func directory(g *echo.Group, list, get, create, update, remove echo.HandlerFunc) {
	g.GET("", list)
	g.GET("/:id", get)
	g.POST("", create)
	g.PUT("/:id", update)
	g.DELETE("/:id", remove)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
