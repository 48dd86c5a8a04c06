package contact

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Form is a contact submission as posted by the public page. Website is the
// honeypot and must stay empty.
type Form struct {
	Name    string `validate:"required,min=2,max=100,personname"`
	Email   string `validate:"required,email,max=100"`
	Message string `validate:"required,min=10,max=1000,nospam"`
	Website string
}

// ValidationErrors lists user-facing messages in field order.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, ", ")
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(viagra|casino|lottery|winner|congratulations)\b`),
	regexp.MustCompile(`(?i)\b(click here|visit now|act now|limited time)\b`),
	regexp.MustCompile(`(?i)(http://|https://|www\.)`),
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("personname", validatePersonName)
	v.RegisterValidation("nospam", validateNoSpam)
	return v
}

func validatePersonName(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func validateNoSpam(fl validator.FieldLevel) bool {
	return !IsSpam(fl.Field().String())
}

// IsSpam reports whether text matches one of the blocked keyword or link
// patterns.
func IsSpam(text string) bool {
	for _, p := range spamPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var fieldMessages = map[string]map[string]string{
	"Name": {
		"required":   "El nombre es obligatorio",
		"min":        "El nombre debe tener al menos 2 caracteres",
		"max":        "El nombre no puede exceder 100 caracteres",
		"personname": "El nombre solo puede contener letras y espacios",
	},
	"Email": {
		"required": "El email es obligatorio",
		"email":    "El email no es válido",
		"max":      "El email no puede exceder 100 caracteres",
	},
	"Message": {
		"required": "El mensaje es obligatorio",
		"min":      "El mensaje debe tener al menos 10 caracteres",
		"max":      "El mensaje no puede exceder 1000 caracteres",
		"nospam":   "El mensaje contiene contenido no permitido",
	},
}

// Normalize trims every field.
func (f *Form) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)
	f.Website = strings.TrimSpace(f.Website)
}

// Validate checks f and returns nil or the ValidationErrors for it. The
// honeypot is not part of validation.
func (f Form) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = "El campo " + strings.ToLower(fe.Field()) + " no es válido"
		}
		out = append(out, msg)
	}
	return out
}
