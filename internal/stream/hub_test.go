package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekon-lab/internal/domain"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func TestHub_BroadcastsRounds(t *testing.T) {
	h := NewHub(nil, nil)
	conn := dial(t, h)

	h.OnAgentAction(domain.ActionEvent{Round: 4, Agent: "a", Type: domain.ActionMove, From: 0, To: 1, Accepted: true})
	cont := h.OnRoundEnd(context.Background(), &domain.RoundSnapshot{
		Round:       4,
		TotalRounds: 10,
		Agents:      []domain.AgentSnapshot{{Name: "a", Coin: 12, Position: 1}},
	})
	assert.True(t, cont)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TypeRound, msg.Type)
	assert.Equal(t, 4, msg.Round)
	require.NotNil(t, msg.Frame)
	require.Len(t, msg.Frame.Events, 1)
	assert.Equal(t, "a", msg.Frame.Agents[0].Name)
}

func TestHub_StatusMessage(t *testing.T) {
	h := NewHub(nil, nil)
	conn := dial(t, h)

	h.Broadcast(Message{Type: TypeStatus, Round: 2, Data: map[string]bool{"paused": true}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"status","round":2,"data":{"paused":true}}`, string(data))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := NewHub(nil, nil)
	conn := dial(t, h)
	require.Equal(t, 1, h.Clients())

	require.NoError(t, conn.Close())
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h := NewHub(nil, nil)
	assert.NotPanics(t, func() {
		h.OnRoundEnd(context.Background(), &domain.RoundSnapshot{})
	})
}
