package authx

import (
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP middleware for credential validation and scope
// checking.
type Middleware struct {
	service      *Service
	validator    *Validator
	errorHandler func(http.ResponseWriter, *http.Request, error)
	log          *zap.Logger
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := authx.NewMiddleware(service, validator)
//	router.Use(mw.Authenticate())
func NewMiddleware(service *Service, validator *Validator, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		validator:    validator,
		errorHandler: defaultErrorHandler,
		log:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// WithMiddlewareLogger sets the logger.
func WithMiddlewareLogger(log *zap.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.log = log
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsNotAuthorized(err):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsForbidden(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsValidation(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case IsNotFound(err):
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Authenticate creates middleware that validates the Authorization header
// and stores the proven identity in the request context. Requests without a
// header pass through anonymous; requests with a bad credential are
// rejected.
//
// Example:
//
//	router.Use(mw.Authenticate())
func (m *Middleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := m.validator.ValidateHeader(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				m.log.Debug("credential validation failed", zap.Error(err))
				m.errorHandler(w, r, err)
				return
			}
			if identity == nil {
				// Anonymous request
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope creates middleware that requires the caller's live access to
// cover every one of the given scope literals. Anonymous requests are
// rejected.
//
// Example:
//
//	router.With(mw.RequireScope("app:v2.user.......:r....")).
//	    Get("/users/{id}", readUserHandler)
func (m *Middleware) RequireScope(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := GetIdentity(ctx)
			if identity == nil {
				m.errorHandler(w, r, NewError(ErrNotAuthorized, "request is not authenticated"))
				return
			}

			ok, err := m.service.Can(ctx, identity.AuthorizationID, scopes...)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !ok {
				m.errorHandler(w, r, NewError(ErrForbidden, "caller's access does not cover the required scopes").
					WithAuthorization(identity.AuthorizationID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadChecker creates middleware that resolves the caller's Checker into
// context. Use this when you want to do permission checks in the handler
// rather than middleware.
//
// Example:
//
//	router.With(mw.LoadChecker()).Get("/dashboard", dashboardHandler)
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := authx.FromContext(r.Context())
//	    if checker != nil {
//	        ok, _ := checker.CanOn(r.Context(), ref, authx.ActionReadBasic)
//	        // ...
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := GetIdentity(ctx)
			if identity == nil {
				// No identity, continue without checker
				next.ServeHTTP(w, r)
				return
			}

			checker, err := m.service.GetChecker(ctx, identity.AuthorizationID)
			if err != nil {
				m.log.Debug("checker resolution failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithChecker(ctx, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
