package handlers

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"geopoint/database"
	"geopoint/models"
)

type sentMail struct {
	To, Subject, Body string
}

// fakeSender records outbound mail instead of delivering it
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

// failSender simulates an unreachable mail relay
type failSender struct{}

func (failSender) Send(to, subject, body string) error {
	return errors.New("relay unreachable")
}

// newTestServer wires a server against a fresh in-memory database
func newTestServer(t *testing.T) (*Server, *fakeSender) {
	t.Helper()
	if err := database.InitializeAt(":memory:"); err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sender := &fakeSender{}
	return NewServer(sender), sender
}

// newTestClient builds a connectionless client; handlers only touch the
// send queue, never the socket
func newTestClient(username string) *Client {
	return &Client{
		Username: username,
		Send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

func seedUser(t *testing.T, username string) {
	t.Helper()
	if err := database.CreateUser(username, "not-a-real-hash", username+"@example.com"); err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
}

// drain empties the client's send queue and returns the decoded frames
func drain(t *testing.T, c *Client) []models.Response {
	t.Helper()
	var frames []models.Response
	for {
		select {
		case raw := <-c.Send:
			var resp models.Response
			if err := json.Unmarshal(raw, &resp); err != nil {
				t.Fatalf("Undecodable frame %q: %v", raw, err)
			}
			frames = append(frames, resp)
		default:
			return frames
		}
	}
}

// dispatch runs one frame through the full pipeline and returns the
// direct reply, discarding pushes addressed to the same client
func dispatch(t *testing.T, s *Server, c *Client, frame map[string]interface{}) models.Response {
	t.Helper()
	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	return dispatchRaw(t, s, c, raw, frame["id"])
}

func dispatchRaw(t *testing.T, s *Server, c *Client, raw []byte, wantID interface{}) models.Response {
	t.Helper()
	s.Dispatch(c, raw)
	for _, resp := range drain(t, c) {
		if resp.ID == wantID || wantID == nil {
			return resp
		}
	}
	t.Fatalf("No reply for id %v", wantID)
	return models.Response{}
}
