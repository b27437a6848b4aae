package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

var validate = validator.New()

// validateInput runs struct tag validation and reports failures per field.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return apperrors.NewValidationError("invalid input", details)
}

func requireStaff(session domain.SessionContext) error {
	if session.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !session.IsStaff() {
		return apperrors.NewForbidden("agent or admin role required")
	}
	return nil
}

func requireAdmin(session domain.SessionContext) error {
	if session.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !session.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// notFoundOr maps storage misses to a NOT_FOUND for the named resource.
func notFoundOr(err error, resource, id string) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}

func actorOf(session domain.SessionContext) (domain.ActorType, *string) {
	if session.UserID == "" {
		return domain.ActorTypeSystem, nil
	}
	id := session.UserID
	return domain.ActorTypeUser, &id
}

func eventActor(session domain.SessionContext) events.Actor {
	if session.UserID == "" {
		return events.SystemActor
	}
	return events.UserActor(session.UserID)
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func strPtr(s string) *string {
	return &s
}
