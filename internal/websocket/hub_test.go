package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helpdesk/internal/model"
	"helpdesk/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var testUsers = map[string][2]string{
	"hr-token":    {"hr-1", model.RoleHR},
	"owner-token": {"emp-1", model.RoleEmployee},
	"other-token": {"emp-2", model.RoleEmployee},
}

func testAuth(token string) (string, string, error) {
	u, ok := testUsers[token]
	if !ok {
		return "", "", errors.New("bad token")
	}
	return u[0], u[1], nil
}

func setupHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, testAuth) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial(%s) error = %v", token, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d clients registered", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWs_RejectsBadToken(t *testing.T) {
	_, srv := setupHub(t)

	for _, token := range []string{"", "nope"} {
		resp, err := http.Get(srv.URL + "/ws?token=" + token)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}
}

func TestHub_DeliversToHRAndOwnerOnly(t *testing.T) {
	hub, srv := setupHub(t)

	hr := dial(t, srv, "hr-token")
	owner := dial(t, srv, "owner-token")
	other := dial(t, srv, "other-token")
	waitForClients(t, hub, 3)

	hub.Notify(context.Background(), notify.Event{
		Type:      notify.EventChatCreated,
		ChannelID: "ch-1",
		OwnerID:   "emp-1",
	})

	for name, conn := range map[string]*websocket.Conn{"hr": hr, "owner": owner} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s: read error = %v", name, err)
		}
		var got notify.Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("%s: decode error = %v", name, err)
		}
		if got.ChannelID != "ch-1" || got.Type != notify.EventChatCreated {
			t.Errorf("%s: event = %+v", name, got)
		}
	}

	other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("non-owner employee should not receive the event")
	}
}
