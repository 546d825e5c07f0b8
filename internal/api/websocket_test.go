package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termgate/termgate/internal/bus"
	"github.com/termgate/termgate/internal/gateway"
)

func TestEventStreamDeliversBusEvents(t *testing.T) {
	server := newTestAPI(t)

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered before the dial returns, but give the
	// connection handler a moment to add the client to the broadcast set.
	time.Sleep(100 * time.Millisecond)

	server.gateway.Handle(context.Background(), gateway.Request{Command: "echo stream-test"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	types := map[bus.EventType]bool{}
	for len(types) < 2 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var event bus.Event
		require.NoError(t, json.Unmarshal(data, &event))
		types[event.Type] = true
	}

	assert.True(t, types[bus.EventCommandReceived])
	assert.True(t, types[bus.EventCommandStarted] || types[bus.EventCommandCompleted])
}
