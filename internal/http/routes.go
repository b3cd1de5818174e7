package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/mmk-accounts/internal/session"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Accounts AccountFlows     // required
	Sessions *session.Manager // required
	// Renderer draws pages; defaults to JSONRenderer.
	Renderer PageRenderer
	// BasePath mounts the account pages; defaults to DefaultBasePath.
	BasePath     string
	CookieDomain string
	// Health checks are run by /healthz.
	Health map[string]HealthCheck
	Logger *slog.Logger
}

// NewRouter creates the accounts router with its middleware stack.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := services.Renderer
	if renderer == nil {
		renderer = JSONRenderer{}
	}
	base := normalizeBasePath(services.BasePath)

	h := &AccountHandlers{
		Flows:    services.Accounts,
		Sessions: services.Sessions,
		Renderer: renderer,
		BasePath: base,
		Logger:   logger,
	}

	accounts := http.NewServeMux()
	registerAccountRoutes(accounts, base, h)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", healthHandler(services.Health))
	mux.Handle(base+"/", Chain(accounts,
		Sessions(services.Sessions, logger),
		CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain, CookiePath: base}),
	))

	return Chain(mux, Recover(logger), Logging(logger))
}

func registerAccountRoutes(mux *http.ServeMux, base string, h *AccountHandlers) {
	requireSession := RequireSession(base + PathLogin)

	mux.HandleFunc("GET "+base+"/{$}", h.Index)
	mux.HandleFunc("GET "+base+PathLogin, h.LoginPage)
	mux.HandleFunc("POST "+base+PathLogin, h.Login)
	mux.HandleFunc("GET "+base+PathRegister, h.RegisterPage)
	mux.HandleFunc("POST "+base+PathRegister, h.Register)
	mux.HandleFunc("GET "+base+PathRegisterPending, h.RegisterPending)
	mux.HandleFunc("GET "+base+PathConfirmEmail, h.ConfirmEmail)
	mux.HandleFunc("GET "+base+PathRecover, h.RecoverPage)
	mux.HandleFunc("POST "+base+PathRecover, h.Recover)
	mux.HandleFunc("GET "+base+PathRecoverPending, h.RecoverPending)
	mux.HandleFunc("GET "+base+PathRecoverComplete, h.RecoverCompletePage)
	mux.HandleFunc("POST "+base+PathRecoverComplete, h.RecoverComplete)
	mux.Handle("GET "+base+PathEdit, requireSession(http.HandlerFunc(h.EditPage)))
	mux.Handle("POST "+base+PathEdit, requireSession(http.HandlerFunc(h.Edit)))
	mux.HandleFunc("GET "+base+PathLogout, h.Logout)
	mux.HandleFunc("POST "+base+PathLogout, h.Logout)
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return DefaultBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
