package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/google/uuid"
)

type groupService struct {
	writer
}

func NewGroupService(s *store.Store, q *outbox.Queue, uow db.UnitOfWork, feed *changefeed.Feed) GroupService {
	return &groupService{writer: newWriter(s, q, uow, feed)}
}

func (s *groupService) Create(ctx context.Context, g *domain.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return invalid("group name is required")
	}
	return s.within(ctx, func(t *txn) error {
		trainer, err := store.Load[*domain.User](t.ctx, t.store, domain.TableUsers, g.TrainerID)
		if errors.Is(err, store.ErrNotFound) {
			return invalid("trainer %q does not exist", g.TrainerID)
		}
		if err != nil {
			return err
		}
		if !trainer.IsTrainer() {
			return invalid("user %q is not a trainer", g.TrainerID)
		}
		return t.put(domain.OpInsert, g)
	})
}

func (s *groupService) ListByTrainer(ctx context.Context, trainerID string) ([]*domain.Group, error) {
	list, err := store.Query[*domain.Group](ctx, s.store, domain.TableGroups, "trainer_id", trainerID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *groupService) AddMember(ctx context.Context, groupID, userID string) (*domain.GroupMember, error) {
	var member *domain.GroupMember
	err := s.within(ctx, func(t *txn) error {
		if err := t.mustExist(domain.TableGroups, groupID); err != nil {
			return err
		}
		if err := t.mustExist(domain.TableUsers, userID); err != nil {
			return err
		}
		existing, err := store.Query[*domain.GroupMember](t.ctx, t.store, domain.TableGroupMembers, "group_id", groupID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			if m.UserID == userID {
				member = m
				return nil
			}
		}
		member = &domain.GroupMember{ID: uuid.New().String(), GroupID: groupID, UserID: userID, Since: domain.Now()}
		return t.put(domain.OpInsert, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *groupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.within(ctx, func(t *txn) error {
		existing, err := store.Query[*domain.GroupMember](t.ctx, t.store, domain.TableGroupMembers, "group_id", groupID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			if m.UserID == userID {
				return t.remove(domain.TableGroupMembers, m.ID)
			}
		}
		return nil
	})
}

func (s *groupService) Members(ctx context.Context, groupID string) ([]*domain.GroupMember, error) {
	list, err := store.Query[*domain.GroupMember](ctx, s.store, domain.TableGroupMembers, "group_id", groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Since < list[j].Since })
	return list, nil
}
