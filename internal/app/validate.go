package app

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and converts failures into a 400.
func validateStruct(item any) error {
	if err := validate.Struct(item); err != nil {
		return validationFailed(err)
	}
	return nil
}

// Rich text keeps formatting markup; plain text drops every tag.
var (
	richText  = newRichTextPolicy()
	plainText = bluemonday.StrictPolicy()
)

var lazyLoading = regexp.MustCompile(`^(lazy|eager)$`)

func newRichTextPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span", "div")
	p.AllowAttrs("loading").Matching(lazyLoading).OnElements("img")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

func sanitizeRich(value string) string {
	return strings.TrimSpace(richText.Sanitize(value))
}

// sanitizePlain strips markup but keeps the characters a person typed.
func sanitizePlain(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(value)))
}
