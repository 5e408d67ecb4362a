package formhttp

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/upload"
)

func dialLive(t *testing.T, s *Server, formID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/forms/" + formID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(serverMessage) bool) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

func TestLive_InitialState(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	conn := dialLive(t, s, "contact")

	msg := readUntil(t, conn, "state", func(m serverMessage) bool { return m.Type == "state" })
	if msg.State == nil {
		t.Fatal("state message without state")
	}
	if msg.State.Values["name"] != "" {
		t.Errorf("initial name = %v, want empty", msg.State.Values["name"])
	}
	if msg.State.IsDirty {
		t.Error("initial state is dirty")
	}
}

func TestLive_ChangeAndSubmit(t *testing.T) {
	submitted := make(chan form.Values, 1)
	s, _ := newTestServer(t, Config{
		OnSubmit: func(ctx context.Context, formID string, values form.Values, files map[string]*upload.Stored) error {
			submitted <- values
			return nil
		},
	})
	conn := dialLive(t, s, "contact")

	send(t, conn, map[string]any{"op": "change", "field": "name", "value": "<i>Ada</i>"})
	msg := readUntil(t, conn, "changed state", func(m serverMessage) bool {
		if m.Type != "state" || m.State.Values["name"] != "Ada" {
			return false
		}
		_, validated := m.State.Errors["name"]
		return validated
	})
	if got := msg.State.Errors["name"]; got != "" {
		t.Errorf("name error = %q, want empty", got)
	}
	if !msg.State.Dirty["name"] {
		t.Error("name not dirty after change")
	}

	send(t, conn, map[string]any{"op": "blur", "field": "name"})
	readUntil(t, conn, "touched state", func(m serverMessage) bool {
		return m.Type == "state" && m.State.Touched["name"]
	})

	send(t, conn, map[string]any{"op": "submit"})
	msg = readUntil(t, conn, "submitted", func(m serverMessage) bool { return m.Type != "state" })
	if msg.Type != "submitted" {
		t.Fatalf("type = %q, want submitted", msg.Type)
	}
	if msg.Values["name"] != "Ada" {
		t.Errorf("submitted name = %v", msg.Values["name"])
	}

	select {
	case values := <-submitted:
		if values["name"] != "Ada" {
			t.Errorf("OnSubmit name = %v", values["name"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnSubmit was not called")
	}
}

func TestLive_SubmitInvalid(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	conn := dialLive(t, s, "contact")
	readUntil(t, conn, "initial state", func(m serverMessage) bool { return m.Type == "state" })

	send(t, conn, map[string]any{"op": "submit"})
	msg := readUntil(t, conn, "invalid", func(m serverMessage) bool { return m.Type != "state" })
	if msg.Type != "invalid" {
		t.Fatalf("type = %q, want invalid", msg.Type)
	}
	if msg.Errors["name"] != "Name is required" {
		t.Errorf("errors = %v", msg.Errors)
	}

	send(t, conn, map[string]any{"op": "reset"})
	readUntil(t, conn, "reset state", func(m serverMessage) bool {
		return m.Type == "state" && len(m.State.Touched) == 0 && len(m.State.Errors) == 0
	})
}

func TestLive_BadMessages(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	conn := dialLive(t, s, "contact")

	tests := []struct {
		name string
		send func()
		code string
	}{
		{"invalid json", func() { conn.WriteMessage(websocket.TextMessage, []byte("{")) }, "F141"},
		{"unknown op", func() { send(t, conn, map[string]any{"op": "explode"}) }, "F141"},
		{"unknown field", func() { send(t, conn, map[string]any{"op": "change", "field": "nope", "value": "x"}) }, "F002"},
		{"bad value", func() { send(t, conn, map[string]any{"op": "change", "field": "tags", "value": []any{1}}) }, "F141"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.send()
			msg := readUntil(t, conn, "error", func(m serverMessage) bool { return m.Type == "error" })
			if msg.Error == nil || msg.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", msg.Error, tt.code)
			}
		})
	}
}

func TestLive_UnknownForm(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	srv := httptest.NewServer(s)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/forms/nope/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() succeeded for an unknown form")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("response = %v, want 404", resp)
	}
}
