package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/alexanderramin/cadence/internal/store"
)

// matchID resolves input against ids as an exact id or a unique prefix, so
// the truncated ids shown in tables can be typed back.
func matchID(kind, input string, ids []string) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}
	var matches []string
	for _, id := range ids {
		if id == input {
			return id, nil
		}
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", kind, input, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s %q is ambiguous (%d matches); use more characters", kind, input, len(matches))
	}
}

func ids[E domain.Entity](list []E) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.EntityID()
	}
	return out
}

func resolveMacrocycle(ctx context.Context, a *App, input string) (string, error) {
	macros, err := a.Planning.ListMacrocycles(ctx)
	if err != nil {
		return "", err
	}
	return matchID("macrocycle", input, ids(macros))
}

func allMesocycles(ctx context.Context, a *App) ([]*domain.Mesocycle, error) {
	macros, err := a.Planning.ListMacrocycles(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Mesocycle
	for _, m := range macros {
		mesos, err := a.Planning.ListMesocycles(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, mesos...)
	}
	return out, nil
}

func resolveMesocycle(ctx context.Context, a *App, input string) (string, error) {
	mesos, err := allMesocycles(ctx, a)
	if err != nil {
		return "", err
	}
	return matchID("mesocycle", input, ids(mesos))
}

func resolveMicrocycle(ctx context.Context, a *App, input string) (string, error) {
	mesos, err := allMesocycles(ctx, a)
	if err != nil {
		return "", err
	}
	var all []string
	for _, m := range mesos {
		micros, err := a.Planning.ListMicrocycles(ctx, m.ID)
		if err != nil {
			return "", err
		}
		all = append(all, ids(micros)...)
	}
	return matchID("microcycle", input, all)
}

func resolveSession(ctx context.Context, a *App, input string) (string, error) {
	sessions, err := a.Planning.ListSessions(ctx, service.SessionFilter{})
	if err != nil {
		return "", err
	}
	return matchID("session", input, ids(sessions))
}

// resolveUser accepts an id, an id prefix or an exact email.
func resolveUser(ctx context.Context, a *App, input string) (string, error) {
	users, err := a.Users.List(ctx)
	if err != nil {
		return "", err
	}
	email := strings.ToLower(strings.TrimSpace(input))
	for _, u := range users {
		if u.Email == email {
			return u.ID, nil
		}
	}
	return matchID("user", input, ids(users))
}

func resolveAssignment(ctx context.Context, a *App, input string) (string, error) {
	users, err := a.Users.List(ctx)
	if err != nil {
		return "", err
	}
	var all []string
	for _, u := range users {
		list, err := a.Assignments.ListByUser(ctx, u.ID)
		if err != nil {
			return "", err
		}
		all = append(all, ids(list)...)
	}
	return matchID("assignment", input, all)
}
