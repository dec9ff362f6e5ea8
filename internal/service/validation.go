package service

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// Reasons attached to validation error details.
const (
	ReasonMissingField = "MISSING_FIELD"
	ReasonBadFormat    = "BAD_FORMAT"
)

var (
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// RegisterInput is the registration payload. The identifier is validated
// separately because its rules depend on the configured identifier kind.
type RegisterInput struct {
	Identifier     string `json:"-"`
	Name           string `json:"name" validate:"required,max=128"`
	Phone          string `json:"phone" validate:"required,len=10,digits"`
	NIC            string `json:"nic" validate:"required,len=12,digits"`
	PaymentAccount string `json:"paymentAccount" validate:"required,max=64"`
	Password       string `json:"password" validate:"required,maxbytes=72"` // bcrypt input limit
}

// LoginInput is the login payload.
type LoginInput struct {
	Identifier string
	Password   string
}

type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return &inputValidator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Registration reports every missing field at once; format problems are only
// checked once all fields are present and name the first offending field.
func (iv *inputValidator) Registration(in RegisterInput, kind domain.IdentifierKind) error {
	var missing []string
	var badFormat []violation

	if err := iv.v.Var(in.Identifier, identifierRules(kind)); err != nil {
		m, b := partition(err, string(kind))
		missing = append(missing, m...)
		badFormat = append(badFormat, b...)
	}
	if err := iv.v.Struct(in); err != nil {
		m, b := partition(err, "")
		missing = append(missing, m...)
		badFormat = append(badFormat, b...)
	}

	if len(missing) > 0 {
		return missingFieldError(missing)
	}
	if len(badFormat) > 0 {
		return badFormatError(badFormat[0])
	}
	return nil
}

// Login only checks presence; credential rules are enforced at registration.
func (iv *inputValidator) Login(in LoginInput, kind domain.IdentifierKind) error {
	var missing []string
	if strings.TrimSpace(in.Identifier) == "" {
		missing = append(missing, string(kind))
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return missingFieldError(missing)
	}
	return nil
}

func identifierRules(kind domain.IdentifierKind) string {
	if kind == domain.IdentifierUsername {
		return "required,min=3,max=64,username"
	}
	return "required,email,max=254"
}

type violation struct {
	field string
	rule  string
}

func partition(err error, fieldOverride string) (missing []string, badFormat []violation) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, []violation{{field: fieldOverride, rule: "invalid"}}
	}
	for _, fe := range verrs {
		field := fe.Field()
		if fieldOverride != "" {
			field = fieldOverride
		}
		if fe.Tag() == "required" {
			missing = append(missing, field)
			continue
		}
		badFormat = append(badFormat, violation{field: field, rule: fe.Tag()})
	}
	return missing, badFormat
}

func missingFieldError(fields []string) error {
	return apperrors.NewValidationError("missing required fields: "+strings.Join(fields, ", "), map[string]any{
		"reason":  ReasonMissingField,
		"missing": fields,
	})
}

func badFormatError(v violation) error {
	return apperrors.NewValidationError("invalid format for field "+v.field, map[string]any{
		"reason": ReasonBadFormat,
		"field":  v.field,
		"rule":   v.rule,
	})
}
