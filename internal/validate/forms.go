// Package validate rejects incomplete or inconsistent forms before any network call.
package validate

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Error is a validation failure carrying the message shown to the user.
type Error struct {
	Field   string
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

const (
	MsgFillAllFields   = "Please fill all fields"
	MsgPasswordMatch   = "Passwords do not match!"
	MsgPasswordLength  = "Password must be at least 6 characters long!"
	MsgSelectGateway   = "Please select a payment method"
	MsgInvalidEmail    = "Please enter a valid email address"
	MsgInvalidDate     = "Please enter the date as YYYY-MM-DD"
	MsgUnknownGateway  = "Unsupported payment method"
	MsgMissingPassword = "Please enter a new password"
)

type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type RegisterForm struct {
	Name            string `validate:"required"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"required"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type BookingForm struct {
	DoctorID string `validate:"required"`
	Date     string `validate:"required,datetime=2006-01-02"`
	TimeSlot string `validate:"required"`
}

type PaymentForm struct {
	Gateway string `validate:"required,oneof=easypaisa jazzcash card"`
}

type PasswordForm struct {
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// rule maps a failing field/tag pair to a message; an empty tag matches any tag.
// Rules are checked in order, so earlier rules win when several fields fail.
type rule struct {
	field   string
	tag     string
	message string
}

var (
	loginRules = []rule{
		{tag: "required", message: MsgFillAllFields},
		{field: "Email", tag: "email", message: MsgInvalidEmail},
	}
	registerRules = []rule{
		{tag: "required", message: MsgFillAllFields},
		{field: "ConfirmPassword", tag: "eqfield", message: MsgPasswordMatch},
		{field: "Password", tag: "min", message: MsgPasswordLength},
		{field: "Email", tag: "email", message: MsgInvalidEmail},
	}
	bookingRules = []rule{
		{tag: "required", message: MsgFillAllFields},
		{field: "Date", tag: "datetime", message: MsgInvalidDate},
	}
	paymentRules = []rule{
		{field: "Gateway", tag: "required", message: MsgSelectGateway},
		{field: "Gateway", tag: "oneof", message: MsgUnknownGateway},
	}
	passwordRules = []rule{
		{field: "Password", tag: "required", message: MsgMissingPassword},
		{field: "ConfirmPassword", tag: "required", message: MsgPasswordMatch},
		{field: "ConfirmPassword", tag: "eqfield", message: MsgPasswordMatch},
		{field: "Password", tag: "min", message: MsgPasswordLength},
	}
)

func Login(f LoginForm) error       { return check(f, loginRules) }
func Register(f RegisterForm) error { return check(f, registerRules) }
func Booking(f BookingForm) error   { return check(f, bookingRules) }
func Payment(f PaymentForm) error   { return check(f, paymentRules) }
func Password(f PasswordForm) error { return check(f, passwordRules) }

func check(form any, rules []rule) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}

	for _, r := range rules {
		for _, fe := range failures {
			if (r.field == "" || fe.Field() == r.field) && (r.tag == "" || fe.Tag() == r.tag) {
				return &Error{Field: fe.Field(), Rule: fe.Tag(), Message: r.message}
			}
		}
	}

	fe := failures[0]
	return &Error{Field: fe.Field(), Rule: fe.Tag(), Message: MsgFillAllFields}
}
