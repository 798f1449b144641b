package app

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"portfolio/api/internal/store"
	"portfolio/api/internal/util"
)

type translationSource interface {
	TranslationsFor(ctx context.Context, entityType, locale string, ids []string) (map[string]map[string]string, error)
}

type localizer struct {
	source        translationSource
	defaultLocale string
}

// active reports whether locale asks for an overlay. The default locale and
// an empty locale read the stored rows as they are.
func (l *localizer) active(locale string) bool {
	locale = strings.TrimSpace(locale)
	return l.source != nil && locale != "" && !strings.EqualFold(locale, l.defaultLocale)
}

// translatableModels lists the entity types translations may target.
var translatableModels = map[string]reflect.Type{
	"category":    reflect.TypeOf(store.Category{}),
	"project":     reflect.TypeOf(store.Project{}),
	"post":        reflect.TypeOf(store.Post{}),
	"testimonial": reflect.TypeOf(store.Testimonial{}),
	"experience":  reflect.TypeOf(store.Experience{}),
	"education":   reflect.TypeOf(store.Education{}),
	"skill":       reflect.TypeOf(store.Skill{}),
}

// translatableFields returns the JSON names of the plain string fields of t,
// excluding identifiers and URLs.
func translatableFields(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous || field.Type.Kind() != reflect.String {
			continue
		}
		name := jsonName(field)
		if name == "" || name == "slug" || strings.HasSuffix(name, "Url") || strings.HasSuffix(name, "Image") ||
			strings.HasSuffix(name, "Date") || name == "color" || name == "icon" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// overlayFields replaces string fields of *item whose JSON name appears in
// values. Blank translations are ignored.
func overlayFields[T any](item *T, values map[string]string) {
	v := reflect.ValueOf(item).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous || field.Type.Kind() != reflect.String {
			continue
		}
		if translated, found := values[jsonName(field)]; found && strings.TrimSpace(translated) != "" {
			v.Field(i).SetString(translated)
		}
	}
}

type TranslationInput struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Locale     string `json:"locale"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

type Locales struct {
	Default   string              `json:"default"`
	Supported []string            `json:"supported"`
	Fields    map[string][]string `json:"fields,omitempty"`
}

func (s *Service) Locales(withFields bool) Locales {
	out := Locales{Default: s.cfg.DefaultLocale, Supported: s.cfg.SupportedLocales}
	if withFields {
		out.Fields = make(map[string][]string, len(translatableModels))
		for kind, model := range translatableModels {
			out.Fields[kind] = translatableFields(model)
		}
	}
	return out
}

func (s *Service) ListTranslations(ctx context.Context, filter store.TranslationFilter) Result[[]store.Translation] {
	items, err := s.store.ListTranslations(ctx, filter)
	if err != nil {
		return fail[[]store.Translation](err)
	}
	return ok(items)
}

// SaveTranslations upserts a batch. Every entry is checked before any is
// written; writes are then applied one statement at a time.
func (s *Service) SaveTranslations(ctx context.Context, inputs []TranslationInput) Result[[]store.Translation] {
	if len(inputs) == 0 {
		return fail[[]store.Translation](badRequest("translations must not be empty", nil))
	}
	for i, input := range inputs {
		if err := s.checkTranslation(input); err != nil {
			return fail[[]store.Translation](badRequest(fmt.Sprintf("translations[%d]: %s", i, err.Error()), nil))
		}
	}
	saved := make([]store.Translation, 0, len(inputs))
	for _, input := range inputs {
		item, err := s.store.UpsertTranslation(ctx, store.Translation{
			ID:         util.NewID("tr"),
			EntityType: input.EntityType,
			EntityID:   strings.TrimSpace(input.EntityID),
			Locale:     strings.TrimSpace(input.Locale),
			Field:      input.Field,
			Value:      sanitizeRich(input.Value),
		})
		if err != nil {
			return fail[[]store.Translation](err)
		}
		saved = append(saved, item)
	}
	return ok(saved)
}

func (s *Service) DeleteTranslation(ctx context.Context, id string) Result[deletedRef] {
	if err := s.store.DeleteTranslation(ctx, id); err != nil {
		return fail[deletedRef](err)
	}
	return ok(deletedRef{ID: id})
}

func (s *Service) checkTranslation(input TranslationInput) error {
	model, found := translatableModels[input.EntityType]
	if !found {
		return fmt.Errorf("unknown entityType %q", input.EntityType)
	}
	if strings.TrimSpace(input.EntityID) == "" {
		return fmt.Errorf("entityId is required")
	}
	if !s.cfg.LocaleSupported(strings.TrimSpace(input.Locale)) {
		return fmt.Errorf("unsupported locale %q", input.Locale)
	}
	for _, name := range translatableFields(model) {
		if name == input.Field {
			return nil
		}
	}
	return fmt.Errorf("field %q is not translatable for %s", input.Field, input.EntityType)
}
