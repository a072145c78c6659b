package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/orchestrator"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Server, *orchestrator.StatusStore, *changefeed.Feed) {
	t.Helper()
	status := orchestrator.NewStatusStore(orchestrator.Snapshot{Pending: 2})
	feed := changefeed.New()
	s := NewServer(Config{Addr: "127.0.0.1:0", Logger: logger.Discard(), Status: status, Feed: feed})
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s, status, feed
}

func dial(t *testing.T, s *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestServer_WelcomeIsCurrentStatus(t *testing.T) {
	s, _, _ := startServer(t)
	conn, ctx := dial(t, s)

	msg := readMessage(t, ctx, conn)
	assert.Equal(t, MessageTypeStatus, msg.Type)

	var snap orchestrator.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, orchestrator.StatusIdle, snap.Status)
	assert.Equal(t, 2, snap.Pending)
}

func TestServer_BroadcastsStatusAndChanges(t *testing.T) {
	s, status, feed := startServer(t)
	conn, ctx := dial(t, s)
	readMessage(t, ctx, conn)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	status.Update(func(snap *orchestrator.Snapshot) { snap.Status = orchestrator.StatusSyncing })
	msg := readMessage(t, ctx, conn)
	assert.Equal(t, MessageTypeStatus, msg.Type)
	var snap orchestrator.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, orchestrator.StatusSyncing, snap.Status)

	feed.Publish(changefeed.Change{Table: domain.TableSessions, ID: "s1", Operation: domain.OpUpdate, Source: changefeed.SourcePull})
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, MessageTypeChange, msg.Type)
	var change changefeed.Change
	require.NoError(t, json.Unmarshal(msg.Data, &change))
	assert.Equal(t, domain.TableSessions, change.Table)
	assert.Equal(t, "s1", change.ID)
	assert.Equal(t, changefeed.SourcePull, change.Source)
}

func TestServer_MultipleClients(t *testing.T) {
	s, _, feed := startServer(t)
	const n = 3
	conns := make([]*websocket.Conn, n)
	var ctx context.Context
	for i := range conns {
		conns[i], ctx = dial(t, s)
		readMessage(t, ctx, conns[i])
	}
	require.Eventually(t, func() bool { return s.ClientCount() == n }, time.Second, 10*time.Millisecond)

	feed.Publish(changefeed.Change{Table: domain.TableUsers, ID: "u1", Operation: domain.OpInsert, Source: changefeed.SourceLocal})
	for _, c := range conns {
		assert.Equal(t, MessageTypeChange, readMessage(t, ctx, c).Type)
	}
}

func TestServer_ClientDisconnect(t *testing.T) {
	s, _, _ := startServer(t)
	conn, ctx := dial(t, s)
	readMessage(t, ctx, conn)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	s, _, _ := startServer(t)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string                `json:"status"`
		Clients int                   `json:"clients"`
		Sync    orchestrator.Snapshot `json:"sync"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Clients)
	assert.Equal(t, 2, body.Sync.Pending)
}

func TestServer_StopDetachesSubscriptions(t *testing.T) {
	status := orchestrator.NewStatusStore(orchestrator.Snapshot{})
	feed := changefeed.New()
	s := NewServer(Config{Addr: "127.0.0.1:0", Logger: logger.Discard(), Status: status, Feed: feed})
	require.NoError(t, s.Start())
	assert.Equal(t, 1, feed.SubscriberCount(domain.TableUsers))

	require.NoError(t, s.Stop())
	assert.Equal(t, 0, feed.SubscriberCount(domain.TableUsers))
	feed.Publish(changefeed.Change{Table: domain.TableUsers, ID: "u1"})
}
