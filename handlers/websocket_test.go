package handlers

import (
	"testing"
)

func TestHubPresence(t *testing.T) {
	h := NewHub()
	c := newTestClient("alice")

	if h.IsOnline("alice") {
		t.Error("alice online before registration")
	}

	h.Register("alice", c)
	if !h.IsOnline("alice") {
		t.Error("alice offline after registration")
	}

	h.Deregister(c)
	if h.IsOnline("alice") {
		t.Error("alice online after deregistration")
	}

	// Double deregistration is a no-op.
	h.Deregister(c)
}

func TestHubMultiDeviceDelivery(t *testing.T) {
	h := NewHub()
	phone := newTestClient("alice")
	laptop := newTestClient("alice")
	h.Register("alice", phone)
	h.Register("alice", laptop)

	h.Notify("alice", "FRIEND_REQUEST", "bob")

	for _, c := range []*Client{phone, laptop} {
		frames := drain(t, c)
		if len(frames) != 1 || frames[0].Code != "FRIEND_REQUEST" {
			t.Errorf("Device missed push: %v", frames)
		}
	}

	h.Deregister(phone)
	if !h.IsOnline("alice") {
		t.Error("alice must stay online while the laptop is connected")
	}
}

func TestNotifyUnknownUserIsNoop(t *testing.T) {
	h := NewHub()
	h.Notify("ghost", "FRIEND_REQUEST", "bob")
}

func TestNotifyIsolatesDeadConnections(t *testing.T) {
	h := NewHub()
	stuck := &Client{Username: "alice", Send: make(chan []byte), done: make(chan struct{})}
	healthy := newTestClient("alice")
	h.Register("alice", stuck)
	h.Register("alice", healthy)

	// The unbuffered connection cannot accept the frame; delivery to the
	// healthy one must not block or fail.
	h.Notify("alice", "FRIEND_LIST_CHANGED", "bob")

	frames := drain(t, healthy)
	if len(frames) != 1 || frames[0].Code != "FRIEND_LIST_CHANGED" {
		t.Errorf("Healthy connection missed push: %v", frames)
	}
}

func TestClosedConnectionDropsReplies(t *testing.T) {
	c := newTestClient("alice")
	close(c.done)

	c.push([]byte("late reply"))

	select {
	case msg := <-c.Send:
		t.Errorf("Reply queued on closed connection: %q", msg)
	default:
	}
}
