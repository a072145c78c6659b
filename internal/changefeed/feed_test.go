package changefeed

import (
	"sync"
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFeed_DeliversOnlySubscribedTables(t *testing.T) {
	f := New()
	var sessions, users []Change
	f.Subscribe(func(c Change) { sessions = append(sessions, c) }, domain.TableSessions)
	f.Subscribe(func(c Change) { users = append(users, c) }, domain.TableUsers)

	f.Publish(Change{Table: domain.TableSessions, ID: "s1", Operation: domain.OpInsert, Source: SourceLocal})

	assert.Len(t, sessions, 1)
	assert.Empty(t, users)
	assert.False(t, sessions[0].At.IsZero())
}

func TestFeed_CatchAllSubscriber(t *testing.T) {
	f := New()
	var got []domain.Table
	f.Subscribe(func(c Change) { got = append(got, c.Table) })

	f.Publish(Change{Table: domain.TableUsers, ID: "u1"})
	f.Publish(Change{Table: domain.TableGroups, ID: "g1"})

	assert.Equal(t, []domain.Table{domain.TableUsers, domain.TableGroups}, got)
}

func TestFeed_UnsubscribeStopsDelivery(t *testing.T) {
	f := New()
	calls := 0
	unsub := f.Subscribe(func(Change) { calls++ }, domain.TableUsers)

	f.Publish(Change{Table: domain.TableUsers})
	unsub()
	unsub()
	f.Publish(Change{Table: domain.TableUsers})

	assert.Equal(t, 1, calls)
	assert.Zero(t, f.SubscriberCount(domain.TableUsers))
}

func TestFeed_NilPublishIsNoop(t *testing.T) {
	var f *Feed
	assert.NotPanics(t, func() { f.Publish(Change{Table: domain.TableUsers}) })
}

func TestFeed_ConcurrentPublish(t *testing.T) {
	f := New()
	var mu sync.Mutex
	n := 0
	f.Subscribe(func(Change) {
		mu.Lock()
		n++
		mu.Unlock()
	}, domain.TableAttendance)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Publish(Change{Table: domain.TableAttendance})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, n)
}
