package account

// ActionKind tags the capability an action token grants.
type ActionKind string

const (
	// ActionConfirmEmail authorizes marking an address as verified for a user.
	ActionConfirmEmail ActionKind = "confirm-email"
	// ActionRecoverPassword authorizes replacing the password of the account owning an address.
	ActionRecoverPassword ActionKind = "recover-password"
)

// ConfirmEmail is the payload of an email confirmation link.
type ConfirmEmail struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Kind implements Action.
func (ConfirmEmail) Kind() ActionKind { return ActionConfirmEmail }

// RecoverPassword is the payload of a password recovery link.
type RecoverPassword struct {
	Email string `json:"email"`
}

// Kind implements Action.
func (RecoverPassword) Kind() ActionKind { return ActionRecoverPassword }

// Action is implemented by every token payload variant.
type Action interface {
	Kind() ActionKind
}
