package http

import (
	"context"
	"net/http"
	"time"

	"suryasakshi/internal/auth"
	"suryasakshi/internal/log"
	"suryasakshi/internal/middleware/security"
)

const sessionCookie = "suryasakshi_session"

type userKey struct{}

// currentUser returns the authenticated user stored by requireAuth.
func currentUser(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// sessionUser validates the session cookie.
func (s *Server) sessionUser(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	user, err := s.sessions.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return user, true
}

// requireAuth rejects API calls without a valid session with 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.sessionUser(r)
		if !ok {
			UnauthorizedError("Authentication required").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldUser, user))
		security.NoStoreMiddleware(next).ServeHTTP(w, r.WithContext(ctx))
	}
}

// requirePage redirects unauthenticated page views to the login page.
func (s *Server) requirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.sessionUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		security.NoStoreMiddleware(next).ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	}
}

type loginResponse struct {
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin accepts {username, password} as JSON or a form. Any failure is
// reported with the same generic message.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	htmlForm := wantsHTML(r)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	username, password := parser.Get("username"), parser.Get("password")
	user, ok, err := s.verifier.Verify(r.Context(), username, password)
	if err != nil {
		logger.ErrorContext(r.Context(), "Credential check failed", log.FieldError, err)
		InternalServerError("Login is temporarily unavailable").Write(w)
		return
	}
	if !ok {
		logger.WarnContext(r.Context(), "Login rejected",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldOperation, log.OpLogin)
		if htmlForm {
			s.renderLogin(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		UnauthorizedError(auth.ErrInvalidCredentials.Error()).Write(w)
		return
	}

	token, expires, err := s.sessions.Issue(user)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue session", log.FieldError, err)
		InternalServerError("Login is temporarily unavailable").Write(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	logger.InfoContext(r.Context(), "User logged in", log.FieldUser, user, log.FieldOperation, log.OpLogin)

	if htmlForm {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewResponse().JSON(loginResponse{User: user, ExpiresAt: expires}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := s.sessionUser(r); ok {
		s.state.forget(user)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	if wantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"user": currentUser(r.Context())}).Write(w)
}

// loginLimited answers requests rejected by the login rate limiter.
func loginLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Login rate limit exceeded", log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many login attempts. Please try again later.").Write(w)
}
