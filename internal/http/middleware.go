package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/target/mmk-accounts/internal/session"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Sessions reads the session cookie on every request. A valid session is
// renewed (sliding expiry) and placed in the request context. An invalid or
// expired cookie is cleared and the request continues anonymously.
func Sessions(mgr *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secure := isSecureRequest(r)
			sess, err := mgr.FromRequest(r)
			switch {
			case errors.Is(err, session.ErrNoSession):
			case err != nil:
				logger.DebugContext(r.Context(), "discarding session cookie", slog.Any("error", err))
				http.SetCookie(w, mgr.Clear(secure))
			default:
				cookie, renewed, renewErr := mgr.Renew(sess, secure)
				if renewErr != nil {
					logger.ErrorContext(r.Context(), "renew session", slog.Any("error", renewErr))
					break
				}
				http.SetCookie(w, cookie)
				r = r.WithContext(SetSessionInContext(r.Context(), &renewed))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession redirects anonymous requests to loginPath, carrying the
// requested path as the return-url.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsSignedIn(r.Context()) {
				redirectToLogin(w, r, loginPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	target := safeRedirectPath(r.URL.RequestURI())
	http.Redirect(w, r, loginPath+"?"+url.Values{ParamReturnURL: {target}}.Encode(), http.StatusSeeOther)
}

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
