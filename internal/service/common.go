package service

import (
	"context"
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/observability"
)

// Roles recognised by the lifecycle services.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Actor identifies the caller of a service operation.
type Actor struct {
	ID   string
	Role string
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Role), role)
}

// markupPolicy strips every tag; any difference after unescaping means the text carried markup.
var markupPolicy = bluemonday.StrictPolicy()

func containsMarkup(value string) bool {
	return html.UnescapeString(markupPolicy.Sanitize(value)) != value
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// listWithFallback runs the ordered query and, when it fails, the unordered
// one followed by an in-memory sort with less.
func listWithFallback[T any](
	ctx context.Context,
	resource string,
	logger zerolog.Logger,
	ordered func(context.Context) ([]T, error),
	unordered func(context.Context) ([]T, error),
	less func(a, b T) bool,
) ([]T, error) {
	items, err := ordered(ctx)
	if err == nil {
		return items, nil
	}

	logger.Warn().Err(err).Str("resource", resource).Msg("ordered query failed, sorting in memory")
	observability.ListFallbacks().WithLabelValues(resource).Inc()

	items, err = unordered(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
	return items, nil
}
