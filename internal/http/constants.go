package httpx

// Paths of the account pages, relative to the configured base path.
const (
	PathLogin           = "/login"
	PathRegister        = "/register"
	PathRegisterPending = "/register/pending"
	PathConfirmEmail    = "/confirm-email"
	PathRecover         = "/recover"
	PathRecoverPending  = "/recover/pending"
	PathRecoverComplete = "/recover/complete"
	PathEdit            = "/edit"
	PathLogout          = "/logout"
)

// Page names handed to the PageRenderer.
const (
	PageRegisterPending = "register-pending"
	PageRecoverPending  = "recover-pending"
	PageError           = "error"
)

const (
	// ParamReturnURL is the query parameter carrying the post-flow redirect target.
	ParamReturnURL = "return-url"
	// ParamToken is the query parameter carrying an action token.
	ParamToken = "token"

	// DefaultBasePath mounts the account pages under /accounts.
	DefaultBasePath = "/accounts"

	// maxFormBytes bounds urlencoded bodies read ahead of the form parser.
	maxFormBytes = 1 << 20
)
