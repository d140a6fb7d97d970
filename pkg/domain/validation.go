package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var (
	taxIDPattern = regexp.MustCompile(`^[0-9]{8}$`)
	casPattern   = regexp.MustCompile(`^[0-9]{2,7}-[0-9]{2}-[0-9]$`)
)

// PhoneRegion is the default region used to parse local phone numbers.
const PhoneRegion = "TW"

// User-facing validation messages.
const (
	MsgRequired     = "請填寫所有必填欄位"
	MsgTaxIDFormat  = "統一編號格式不正確"
	MsgTaxIDInUse   = "統一編號已存在"
	MsgCASFormat    = "CAS編號格式不正確"
	MsgEmailFormat  = "電子郵件格式不正確"
	MsgPhoneFormat  = "電話格式不正確"
	MsgInvalidValue = "欄位數值不正確"
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	mustRegister(v, "trimmed", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "taxid", func(fl validator.FieldLevel) bool {
		return ValidTaxID(fl.Field().String())
	})
	mustRegister(v, "cas", func(fl validator.FieldLevel) bool {
		return ValidCAS(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidTaxID reports whether id is exactly eight digits.
func ValidTaxID(id string) bool { return taxIDPattern.MatchString(id) }

// ValidCAS reports whether cas matches the CAS registry number layout.
func ValidCAS(cas string) bool { return casPattern.MatchString(cas) }

// ValidPhone reports whether phone parses as a number in PhoneRegion.
func ValidPhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	_, err := libphonenumber.Parse(phone, PhoneRegion)
	return err == nil
}

// FormatPhone returns phone in international format when it parses, otherwise unchanged.
func FormatPhone(phone string) string {
	num, err := libphonenumber.Parse(phone, PhoneRegion)
	if err != nil {
		return phone
	}
	return libphonenumber.Format(num, libphonenumber.INTERNATIONAL)
}

// Validate checks struct tags and converts the first failure into a *ValidationError.
// Required-field failures take precedence over format failures.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" || fe.Tag() == "trimmed" {
			return &ValidationError{Field: fe.Field(), Message: MsgRequired}
		}
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: messageFor(fe.Tag())}
}

func messageFor(tag string) string {
	switch tag {
	case "taxid":
		return MsgTaxIDFormat
	case "cas":
		return MsgCASFormat
	case "email":
		return MsgEmailFormat
	case "phone":
		return MsgPhoneFormat
	default:
		return MsgInvalidValue
	}
}
