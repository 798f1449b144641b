package app

import (
	"context"
	"strings"

	"portfolio/api/internal/email"
	"portfolio/api/internal/store"
	"portfolio/api/internal/util"
)

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SubmitContact stores a message from the public contact form and emails the
// owner in the background.
func (s *Service) SubmitContact(ctx context.Context, in ContactInput) Result[store.ContactMessage] {
	message := store.ContactMessage{
		ID:      util.NewID("msg"),
		Name:    sanitizePlain(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Subject: sanitizePlain(in.Subject),
		Message: sanitizePlain(in.Message),
	}
	if err := validateStruct(message); err != nil {
		return fail[store.ContactMessage](err)
	}
	saved, err := s.store.InsertContactMessage(ctx, message)
	if err != nil {
		return fail[store.ContactMessage](err)
	}
	if s.email != nil && s.email.CanNotify() {
		s.background("notify contact", func(context.Context) error {
			return s.email.NotifyContact(email.ContactData{
				Name:    saved.Name,
				Email:   saved.Email,
				Subject: saved.Subject,
				Message: saved.Message,
			})
		})
	}
	return ok(saved)
}

const defaultMessageLimit = 50

// ListContactMessages pages the inbox newest first. A missing or negative
// limit means defaultMessageLimit; limit=0 returns no rows.
func (s *Service) ListContactMessages(ctx context.Context, unreadOnly bool, filter store.ListFilter) Result[[]store.ContactMessage] {
	limit, offset := defaultMessageLimit, 0
	if filter.Limit != nil && *filter.Limit >= 0 {
		limit = *filter.Limit
	}
	if filter.Offset != nil && *filter.Offset > 0 {
		offset = *filter.Offset
	}
	items, err := s.store.ListContactMessages(ctx, unreadOnly, limit, offset)
	if err != nil {
		return fail[[]store.ContactMessage](err)
	}
	return ok(items)
}

func (s *Service) MarkContactMessageRead(ctx context.Context, id string) Result[store.ContactMessage] {
	item, err := s.store.MarkContactMessageRead(ctx, id)
	if err != nil {
		return fail[store.ContactMessage](err)
	}
	return ok(item)
}

func (s *Service) DeleteContactMessage(ctx context.Context, id string) Result[deletedRef] {
	if err := s.store.DeleteContactMessage(ctx, id); err != nil {
		return fail[deletedRef](err)
	}
	return ok(deletedRef{ID: id})
}
