package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/target/mmk-accounts/internal/domain/auth"
	"github.com/target/mmk-accounts/internal/form"
	"github.com/target/mmk-accounts/internal/service"
	"github.com/target/mmk-accounts/internal/session"
)

// AccountFlows is the part of service.AccountService the handlers drive.
type AccountFlows interface {
	Login(ctx context.Context, src form.Source) (*service.Outcome, error)
	Register(ctx context.Context, src form.Source, req service.Request) (*service.Outcome, error)
	ConfirmEmail(ctx context.Context, token string, current *domainauth.Session) (*service.Outcome, error)
	RequestRecovery(ctx context.Context, src form.Source, req service.Request) (*service.Outcome, error)
	RecoveryForm(token string) (*service.Outcome, error)
	CompleteRecovery(ctx context.Context, token string, src form.Source) (*service.Outcome, error)
	EditForm(sess domainauth.Session) *service.Outcome
	Edit(ctx context.Context, sess domainauth.Session, src form.Source, req service.Request) (*service.Outcome, error)
	Logout() *service.Outcome
	Dispatch(ctx context.Context, effects []service.Effect) service.DispatchReport
}

// AccountHandlers serves the account pages.
type AccountHandlers struct {
	Flows    AccountFlows
	Sessions *session.Manager
	Renderer PageRenderer
	// BasePath is where the pages are mounted, without a trailing slash.
	BasePath string
	Logger   *slog.Logger
}

// Index sends visitors of the base path to the login page.
func (h *AccountHandlers) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.path(PathLogin, returnURLOf(r)), http.StatusSeeOther)
}

// LoginPage shows the login form, or skips it when already signed in.
func (h *AccountHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if IsSignedIn(r.Context()) {
		http.Redirect(w, r, safeRedirectPath(returnURLOf(r)), http.StatusSeeOther)
		return
	}
	h.showForm(w, r, service.FormLogin)
}

// Login handles POST <base>/login.
func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	out, err := h.Flows.Login(r.Context(), formSource(r))
	h.respond(w, r, out, err)
}

// RegisterPage handles GET <base>/register.
func (h *AccountHandlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, service.FormRegister)
}

// Register handles POST <base>/register.
func (h *AccountHandlers) Register(w http.ResponseWriter, r *http.Request) {
	out, err := h.Flows.Register(r.Context(), formSource(r), requestOf(r))
	h.respond(w, r, out, err)
}

// RegisterPending tells the visitor to check their mailbox.
func (h *AccountHandlers) RegisterPending(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, Page{Name: PageRegisterPending})
}

// ConfirmEmail handles GET <base>/confirm-email?token=.
func (h *AccountHandlers) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	out, err := h.Flows.ConfirmEmail(r.Context(), tokenOf(r), GetSessionFromContext(r.Context()))
	h.respond(w, r, out, err)
}

// RecoverPage handles GET <base>/recover.
func (h *AccountHandlers) RecoverPage(w http.ResponseWriter, r *http.Request) {
	h.showForm(w, r, service.FormRecover)
}

// Recover handles POST <base>/recover.
func (h *AccountHandlers) Recover(w http.ResponseWriter, r *http.Request) {
	out, err := h.Flows.RequestRecovery(r.Context(), formSource(r), requestOf(r))
	h.respond(w, r, out, err)
}

// RecoverPending handles GET <base>/recover/pending.
func (h *AccountHandlers) RecoverPending(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, Page{Name: PageRecoverPending})
}

// RecoverCompletePage handles GET <base>/recover/complete?token=.
func (h *AccountHandlers) RecoverCompletePage(w http.ResponseWriter, r *http.Request) {
	out, err := h.Flows.RecoveryForm(tokenOf(r))
	h.respond(w, r, out, err)
}

// RecoverComplete handles POST <base>/recover/complete?token=.
func (h *AccountHandlers) RecoverComplete(w http.ResponseWriter, r *http.Request) {
	out, err := h.Flows.CompleteRecovery(r.Context(), tokenOf(r), formSource(r))
	h.respond(w, r, out, err)
}

// EditPage handles GET <base>/edit. RequireSession guarantees a session.
func (h *AccountHandlers) EditPage(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	h.respond(w, r, h.Flows.EditForm(*sess), nil)
}

// Edit handles POST <base>/edit.
func (h *AccountHandlers) Edit(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	out, err := h.Flows.Edit(r.Context(), *sess, formSource(r), requestOf(r))
	h.respond(w, r, out, err)
}

// Logout handles GET and POST <base>/logout.
func (h *AccountHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Flows.Logout(), nil)
}

func (h *AccountHandlers) showForm(w http.ResponseWriter, r *http.Request, name service.FormName) {
	h.respond(w, r, &service.Outcome{State: service.StateForm, Form: name}, nil)
}

// respond turns a flow outcome into a response: queued mail is delivered, the
// session cookie is issued or cleared, then the page is drawn or the visitor
// is redirected.
func (h *AccountHandlers) respond(w http.ResponseWriter, r *http.Request, out *service.Outcome, err error) {
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if len(out.Effects) > 0 {
		report := h.Flows.Dispatch(r.Context(), out.Effects)
		if report.Failed > 0 {
			h.Logger.WarnContext(r.Context(), "account mail partially delivered",
				slog.String("state", string(out.State)),
				slog.Int("sent", report.Sent),
				slog.Int("failed", report.Failed))
		}
	}

	secure := isSecureRequest(r)
	if out.ClearSession {
		http.SetCookie(w, h.Sessions.Clear(secure))
	}
	current := GetSessionFromContext(r.Context())
	if out.User != nil {
		cookie, issued, issueErr := h.Sessions.Issue(out.User, secure)
		if issueErr != nil {
			h.renderError(w, r, issueErr)
			return
		}
		http.SetCookie(w, cookie)
		current = &issued
	}

	returnURL := returnURLOf(r)
	switch out.State {
	case service.StateForm:
		h.render(w, r, Page{
			Name:      string(out.Form),
			Fields:    service.Form(out.Form),
			Values:    out.Values,
			Errors:    out.Errors,
			Message:   out.Message,
			ReturnURL: returnURL,
			User:      current,
		})
	case service.StateRegisterPending, service.StateEmailChangePending:
		http.Redirect(w, r, h.path(PathRegisterPending, returnURL), http.StatusSeeOther)
	case service.StateRecoverPending:
		http.Redirect(w, r, h.path(PathRecoverPending, returnURL), http.StatusSeeOther)
	default:
		http.Redirect(w, r, safeRedirectPath(returnURL), http.StatusSeeOther)
	}
}

func (h *AccountHandlers) render(w http.ResponseWriter, r *http.Request, p Page) {
	p.CSRFToken = GetCSRFToken(r)
	if p.ReturnURL == "" {
		p.ReturnURL = returnURLOf(r)
	}
	if p.User == nil {
		p.User = GetSessionFromContext(r.Context())
	}
	if err := h.Renderer.RenderPage(w, r, p); err != nil {
		h.Logger.ErrorContext(r.Context(), "render page", slog.String("page", p.Name), slog.Any("error", err))
	}
}

func (h *AccountHandlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := errorBody(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), "account request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	} else {
		h.Logger.DebugContext(r.Context(), "account request rejected",
			slog.String("path", r.URL.Path), slog.String("code", code), slog.Any("error", err))
	}
	h.render(w, r, Page{Name: PageError, Status: status, Message: msg})
}

// path builds <base><p>, carrying the return-url along.
func (h *AccountHandlers) path(p, returnURL string) string {
	target := h.BasePath + p
	if returnURL == "" {
		return target
	}
	return target + "?" + url.Values{ParamReturnURL: {returnURL}}.Encode()
}

// formSource reads the submission from wherever the CSRF middleware left it.
func formSource(r *http.Request) form.Source {
	switch {
	case r.MultipartForm != nil:
		return form.FromMultipartForm(r.MultipartForm)
	case r.PostForm != nil:
		return form.FromValues(r.PostForm)
	default:
		return form.FromRequest(r)
	}
}

// returnURLOf returns the sanitized return-url, or "" when absent or unsafe.
func returnURLOf(r *http.Request) string {
	raw := r.URL.Query().Get(ParamReturnURL)
	if raw == "" {
		return ""
	}
	if safe := safeRedirectPath(raw); safe == raw {
		return raw
	}
	return ""
}

func requestOf(r *http.Request) service.Request {
	return service.Request{ReturnURL: returnURLOf(r)}
}

func tokenOf(r *http.Request) string {
	return r.URL.Query().Get(ParamToken)
}

// safeRedirectPath only allows same-origin absolute paths. Anything else,
// including protocol-relative "//host" and backslash tricks, becomes "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	if strings.HasPrefix(candidate, "//") || strings.ContainsAny(candidate, "\\\r\n") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
