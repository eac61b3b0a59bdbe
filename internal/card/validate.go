package card

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/business-cards/internal/apperror"
)

var (
	alphaSpacePattern   = regexp.MustCompile(`^[A-Za-z ]+$`)
	githubHandlePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?$`)
)

// IsAlphaSpace reports whether s holds only ASCII letters and spaces.
func IsAlphaSpace(s string) bool {
	return alphaSpacePattern.MatchString(s)
}

// IsLikelyGitHubHandle reports whether s is syntactically a GitHub login:
// 1 to 39 alphanumerics or hyphens, no leading or trailing hyphen.
func IsLikelyGitHubHandle(s string) bool {
	return githubHandlePattern.MatchString(s)
}

// ArtifactChecker reports whether a stored card exists for an identifier.
type ArtifactChecker interface {
	Exists(cardID string) bool
}

// ViewQuery is the query of routes that need both a card and an email.
type ViewQuery struct {
	CardID string `form:"cardId" validate:"required,cardid"`
	Email  string `form:"email" validate:"required,nospace,email"`
}

// PreviewQuery is the query of routes that only need a card.
type PreviewQuery struct {
	CardID string `form:"cardId" validate:"required,cardid"`
}

// messages maps form field name and failing rule to the message shown to the
// user. Rules are checked in tag order and the first failure per field wins.
var messages = map[string]map[string]string{
	"firstName": {"required": "First name is required", "alphaspace": "First name is invalid"},
	"lastName":  {"required": "Last name is required", "alphaspace": "Last name is invalid"},
	"email":     {"required": "Email address is required", "nospace": "Invalid email address", "email": "Invalid email address"},
	"github":    {"required": "Github handle is required", "githubhandle": "Invalid Github handle"},
	"company":   {"required": "Company is required", "alphaspace": "Company is invalid"},
	"cardId":    {"required": "Query param cardId is required", "cardid": "Invalid cardId"},
}

// Validator runs the field rules of forms and lookup queries.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator. Card identifiers are valid only when they
// are well formed AND artifacts reports a stored card for them.
func NewValidator(artifacts ArtifactChecker) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})

	rules := map[string]validator.Func{
		"alphaspace": func(fl validator.FieldLevel) bool {
			return IsAlphaSpace(fl.Field().String())
		},
		// The email travels space-separated next to the card id on its way
		// to the render service, so quoted local parts with blanks are out.
		"nospace": func(fl validator.FieldLevel) bool {
			return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
		},
		"githubhandle": func(fl validator.FieldLevel) bool {
			return IsLikelyGitHubHandle(fl.Field().String())
		},
		"cardid": func(fl validator.FieldLevel) bool {
			id := fl.Field().String()
			return IsWellFormedID(id) && artifacts.Exists(id)
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("card: registering %s rule: %w", tag, err)
		}
	}

	return &Validator{validate: v}, nil
}

// ValidateForm normalizes and validates a submission. On failure the error is
// an *apperror.ValidationErrors listing every failing field.
func (v *Validator) ValidateForm(f Form) (Form, error) {
	f = f.Normalize()
	if err := v.run(f); err != nil {
		return Form{}, err
	}
	return f, nil
}

// ValidateView validates the cardId and email of view and download routes.
func (v *Validator) ValidateView(q ViewQuery) (ViewQuery, error) {
	q.CardID = strings.TrimSpace(q.CardID)
	q.Email = strings.TrimSpace(q.Email)
	if err := v.run(q); err != nil {
		return ViewQuery{}, err
	}
	return q, nil
}

// ValidatePreview validates the cardId of the preview route.
func (v *Validator) ValidatePreview(q PreviewQuery) (PreviewQuery, error) {
	q.CardID = strings.TrimSpace(q.CardID)
	if err := v.run(q); err != nil {
		return PreviewQuery{}, err
	}
	return q, nil
}

// ValidateEmail checks a single address with the same rule as the forms.
func (v *Validator) ValidateEmail(email string) bool {
	return v.validate.Var(email, "required,nospace,email") == nil
}

func (v *Validator) run(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("card: running validation: %w", err)
	}

	var out apperror.ValidationErrors
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), messageFor(fe.Field(), fe.Tag()), fmt.Sprint(fe.Value()))
	}
	return out.OrNil()
}

func messageFor(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", field)
}
