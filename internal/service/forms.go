package service

import "github.com/target/mmk-accounts/internal/form"

// FormName identifies one of the account forms.
type FormName string

const (
	FormLogin           FormName = "login"
	FormRegister        FormName = "register"
	FormRecover         FormName = "recover"
	FormRecoverComplete FormName = "recover-complete"
	FormEdit            FormName = "edit"
)

const (
	nameMaxLength     = 120
	passwordMinLength = 10
	emailTitle        = "A valid email address is like name@domain.com"

	msgNoMatch           = "Does not match"
	msgPasswordsNoMatch  = "Passwords don't match."
	msgLoginFailed       = "Unknown email or wrong password."
	msgEmailAlreadyInUse = "This email address is already in use by another account."
)

var accountForms = map[FormName]*form.Spec{
	FormLogin: form.MustCompile(
		form.FieldSpec{Name: "email", Label: "Email Address", Type: form.TypeEmail, Required: true, Trim: true},
		form.FieldSpec{Name: "password", Label: "Password", Type: form.TypePassword, Required: true},
	),
	FormRegister: form.MustCompile(
		form.FieldSpec{Name: "givenName", Label: "Given name", Required: true, Trim: true, MaxLength: nameMaxLength},
		form.FieldSpec{Name: "middleName", Label: "Middle name (optional)", Trim: true, MaxLength: nameMaxLength},
		form.FieldSpec{Name: "familyName", Label: "Family name", Required: true, Trim: true, MaxLength: nameMaxLength},
		form.FieldSpec{Name: "email", Label: "Email address", Type: form.TypeEmail, Required: true, Trim: true, Title: emailTitle},
		form.FieldSpec{Name: "password", Label: "Choose a password", Type: form.TypePassword, Required: true, MinLength: passwordMinLength},
		form.FieldSpec{Name: "confirmPassword", Label: "Confirm your password", Type: form.TypePassword, Required: true},
	),
	FormRecover: form.MustCompile(
		form.FieldSpec{Name: "email", Label: "Email address", Type: form.TypeEmail, Required: true, Trim: true, Title: emailTitle},
	),
	FormRecoverComplete: form.MustCompile(
		form.FieldSpec{Name: "email", Label: "Email address", Type: form.TypeInfo, ReadOnly: true},
		form.FieldSpec{Name: "password", Label: "New password", Type: form.TypePassword, Required: true, MinLength: passwordMinLength},
		form.FieldSpec{Name: "confirmPassword", Label: "Confirm new password", Type: form.TypePassword, Required: true, MinLength: passwordMinLength},
	),
	FormEdit: form.MustCompile(
		form.FieldSpec{Name: "givenName", Label: "Given name", Trim: true, MaxLength: nameMaxLength},
		form.FieldSpec{Name: "familyName", Label: "Family name", Trim: true, MaxLength: nameMaxLength},
		form.FieldSpec{Name: "email", Label: "Email address", Type: form.TypeEmail, Trim: true, Title: emailTitle},
		form.FieldSpec{Name: "newPassword", Label: "New password", Type: form.TypePassword, MinLength: passwordMinLength},
		form.FieldSpec{Name: "confirmNewPassword", Label: "Confirm new password", Type: form.TypePassword},
	),
}

// Form returns the field declarations of a form, for rendering.
func Form(name FormName) []form.FieldSpec {
	spec, ok := accountForms[name]
	if !ok {
		return nil
	}
	return spec.Fields()
}
