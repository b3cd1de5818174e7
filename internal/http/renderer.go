package httpx

import (
	"net/http"

	domainauth "github.com/target/mmk-accounts/internal/domain/auth"
	"github.com/target/mmk-accounts/internal/form"
)

// Page is everything a renderer needs to draw one account page.
type Page struct {
	Name      string              `json:"page"`
	Status    int                 `json:"-"`
	Fields    []form.FieldSpec    `json:"fields,omitempty"`
	Values    map[string]string   `json:"values,omitempty"`
	Errors    map[string]string   `json:"errors,omitempty"`
	Message   string              `json:"message,omitempty"`
	ReturnURL string              `json:"returnUrl,omitempty"`
	CSRFToken string              `json:"csrfToken,omitempty"`
	User      *domainauth.Session `json:"user,omitempty"`
}

// PageRenderer draws account pages. Implementations own the response body and
// must write p.Status.
type PageRenderer interface {
	RenderPage(w http.ResponseWriter, r *http.Request, p Page) error
}

// JSONRenderer writes pages as JSON documents.
type JSONRenderer struct{}

// RenderPage implements PageRenderer.
func (JSONRenderer) RenderPage(w http.ResponseWriter, _ *http.Request, p Page) error {
	status := p.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, status, p)
	return nil
}
