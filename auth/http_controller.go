package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes mounts the JSON session API and the server-rendered
// login/register pages.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.APIRegister, controller.RegisterPost).
		SetName("api.auth.register")
	app.Post(controller.Routes.APILogin, controller.LoginPost).
		SetName("api.auth.login")
	app.Post(controller.Routes.APIRefresh, controller.RefreshPost).
		SetName("api.auth.refresh")
	app.Get(controller.Routes.APIMe, controller.MeShow).
		SetName("api.auth.me")
	app.Post(controller.Routes.APILogout, controller.LogoutPost).
		SetName("api.auth.logout")

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginForm).
		SetName("sign-in.post")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationForm).
		SetName("register.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")
}

type AuthControllerRoutes struct {
	Login       string
	Logout      string
	Register    string
	Dashboard   string
	APIRegister string
	APILogin    string
	APIRefresh  string
	APIMe       string
	APILogout   string
}

type AuthControllerViews struct {
	Login    string
	Register string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auther       Authenticator
	Cookies      *CookieManager
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = l
		return c
	}
}

func WithControllerAuther(a Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		return c
	}
}

func WithControllerCookies(cm *CookieManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Cookies = cm
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:       "/login",
			Logout:      "/logout",
			Register:    "/register",
			Dashboard:   "/dashboard",
			APIRegister: "/api/auth/register",
			APILogin:    "/api/auth/login",
			APIRefresh:  "/api/auth/refresh",
			APIMe:       "/api/auth/me",
			APILogout:   "/api/auth/logout",
		},
		Views: &AuthControllerViews{
			Login:    "login",
			Register: "register",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Cookies == nil {
		panic("Missing CookieManager in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	FullName string `form:"full_name" json:"fullName"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// RegisterPost handles POST /api/auth/register
func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := bindStrictJSON(ctx, payload); err != nil {
		return a.respondError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	pair, user, err := a.Auther.Register(ctx.Context(), RegisterUserMessage{
		FullName: payload.FullName,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("register user error", "error", err)
		return a.respondError(ctx, err)
	}

	a.Cookies.SetSession(ctx, pair)

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"user":    user.Profile(),
	})
}

// LoginPost handles POST /api/auth/login
func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := bindStrictJSON(ctx, payload); err != nil {
		return a.respondError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	pair, user, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(ctx, err)
	}

	a.Cookies.SetSession(ctx, pair)

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    user.Profile(),
	})
}

// RefreshPost handles POST /api/auth/refresh. A missing cookie is a plain
// 401; an invalid token or a missing user additionally clears both
// cookies so clients do not retry with dead credentials.
func (a *AuthController) RefreshPost(ctx router.Context) error {
	refreshToken := a.Cookies.ReadRefresh(ctx)
	if refreshToken == "" {
		return a.respondError(ctx, ErrNoRefreshToken)
	}

	access, user, err := a.Auther.Refresh(ctx.Context(), refreshToken)
	if err != nil {
		a.Cookies.Clear(ctx)
		return a.respondError(ctx, err)
	}

	a.Cookies.SetAccess(ctx, access)

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    user.Profile(),
	})
}

// MeShow handles GET /api/auth/me
func (a *AuthController) MeShow(ctx router.Context) error {
	token := a.Cookies.ReadAccess(ctx)
	if token == "" {
		return a.respondError(ctx, ErrTokenMalformed)
	}

	user, err := a.Auther.UserFromAccessToken(ctx.Context(), token)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": user.Profile(),
	})
}

// LogoutPost handles POST /api/auth/logout
func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Cookies.Clear(ctx)
	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

// LoginShow renders the login page
func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginForm handles the server-rendered login form
func (a *AuthController) LoginForm(ctx router.Context) error {
	payload := new(LoginRequest)
	formErrors := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	pair, _, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		formErrors["authentication"] = ErrInvalidCredentials.Message
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": formErrors,
			"record": payload,
		})
	}

	a.Cookies.SetSession(ctx, pair)

	return ctx.Redirect(a.Routes.Dashboard, router.StatusSeeOther)
}

// RegistrationShow renders the registration page
func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterRequest{},
	})
}

// RegistrationForm handles the server-rendered registration form
func (a *AuthController) RegistrationForm(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		formErrors := map[string]string{}
		formErrors["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": formErrors,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	pair, _, err := a.Auther.Register(ctx.Context(), RegisterUserMessage{
		FullName: payload.FullName,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("register user error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	a.Cookies.SetSession(ctx, pair)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

// LogOut clears the session and sends the user home
func (a *AuthController) LogOut(ctx router.Context) error {
	a.Cookies.Clear(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) respondValidation(ctx router.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": FormatValidationErrorToMap(err),
	})
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	status := StatusForError(err)

	var rich *goerrors.Error
	message := "internal server error"
	if goerrors.As(err, &rich) && status < http.StatusInternalServerError {
		message = rich.Message
	}

	if status >= http.StatusInternalServerError {
		a.Logger.Error("auth controller error", "error", err)
	}

	return ctx.JSON(status, map[string]any{
		"error": message,
	})
}

// StatusForError maps auth errors to HTTP status codes
func StatusForError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.TextCode {
		case ErrDuplicateEmail.TextCode:
			return http.StatusConflict
		case ErrUserNotFound.TextCode:
			return http.StatusNotFound
		}

		switch rich.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return http.StatusBadRequest
		case goerrors.CategoryConflict:
			return http.StatusConflict
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return http.StatusUnauthorized
		}
	}

	if goerrors.IsNotFound(err) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

// bindStrictJSON decodes the request body rejecting unknown fields, so
// typos in payload keys fail loudly instead of silently zeroing values.
func bindStrictJSON(ctx router.Context, v any) error {
	body := ctx.Body()
	if len(body) == 0 {
		return goerrors.New("request body is empty", goerrors.CategoryBadInput)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body")
	}

	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for templates and JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
