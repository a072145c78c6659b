package service

import (
	"context"
	"sort"
	"strings"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/google/uuid"
)

type userService struct {
	writer
}

func NewUserService(s *store.Store, q *outbox.Queue, uow db.UnitOfWork, feed *changefeed.Feed) UserService {
	return &userService{writer: newWriter(s, q, uow, feed)}
}

func (s *userService) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = domain.RoleAthlete
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		return invalid("%v", err)
	}
	return s.within(ctx, func(t *txn) error {
		ids, err := t.ids(domain.TableUsers, "email", u.Email)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			return invalid("email %q is already registered", u.Email)
		}
		return t.put(domain.OpInsert, u)
	})
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return store.Load[*domain.User](ctx, s.store, domain.TableUsers, id)
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := store.All[*domain.User](ctx, s.store, domain.TableUsers)
	if err != nil {
		return nil, err
	}
	sortUsers(users)
	return users, nil
}

func (s *userService) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if !domain.ValidRoles[role] {
		return nil, invalid("role %q is invalid", role)
	}
	users, err := store.Query[*domain.User](ctx, s.store, domain.TableUsers, "role", string(role))
	if err != nil {
		return nil, err
	}
	sortUsers(users)
	return users, nil
}

func (s *userService) SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !domain.ValidRoles[role] {
		return nil, invalid("role %q is invalid", role)
	}
	var u *domain.User
	err := s.within(ctx, func(t *txn) error {
		var err error
		u, err = store.Load[*domain.User](t.ctx, t.store, domain.TableUsers, id)
		if err != nil {
			return err
		}
		if u.Role == role {
			return nil
		}
		u.Role = role
		return t.put(domain.OpUpdate, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) PendingIDs(ctx context.Context) ([]string, error) {
	return s.queue.PendingIDs(ctx, domain.TableUsers)
}

func sortUsers(users []*domain.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
}
