package security

import (
	"html"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldKind selects how a submitted form value is cleaned.
type FieldKind int

const (
	KindString FieldKind = iota
	KindEmail
	KindURL
	KindInt
	KindFloat
)

var sanitizers = map[FieldKind]func(string) string{
	KindString: html.EscapeString,
	KindEmail:  keepOnly(isEmailRune),
	KindURL:    keepOnly(isURLRune),
	KindInt:    keepOnly(isIntRune),
	KindFloat:  keepOnly(isFloatRune),
}

// Sanitize trims s and cleans it for the given kind. Unknown kinds are
// treated as plain strings.
func Sanitize(kind FieldKind, s string) string {
	fn, ok := sanitizers[kind]
	if !ok {
		fn = sanitizers[KindString]
	}
	return fn(strings.TrimSpace(s))
}

func keepOnly(allowed func(rune) bool) func(string) string {
	return func(s string) string {
		return strings.Map(func(r rune) rune {
			if allowed(r) {
				return r
			}
			return -1
		}, s)
	}
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isEmailRune(r rune) bool {
	return isASCIIAlnum(r) || strings.ContainsRune("!#$%&'*+-=?^_`{|}~@.[]", r)
}

func isURLRune(r rune) bool {
	return isASCIIAlnum(r) || strings.ContainsRune("$-_.+!*'(),{}|\\^~[]`<>#%\";/?:@&=", r)
}

func isIntRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == '+' || r == '-'
}

func isFloatRune(r rune) bool {
	return isIntRune(r) || r == '.'
}

var validate = validator.New()

func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// ValidURL accepts absolute http and https URLs only.
func ValidURL(s string) bool {
	if validate.Var(s, "required,url") != nil {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ParseID parses a positive integer row id.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
