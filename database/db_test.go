package database

import (
	"testing"
)

func setup(t *testing.T) {
	t.Helper()
	if err := InitializeAt(":memory:"); err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	for _, name := range []string{"alice", "bob", "carol"} {
		if err := CreateUser(name, "hash", name+"@example.com"); err != nil {
			t.Fatalf("Failed to seed %s: %v", name, err)
		}
	}
}

func TestFriendPairSymmetry(t *testing.T) {
	setup(t)

	if err := CreateFriendPair("alice", "bob"); err != nil {
		t.Fatalf("CreateFriendPair failed: %v", err)
	}

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		ok, err := FriendPairExists(pair[0], pair[1])
		if err != nil {
			t.Fatalf("FriendPairExists failed: %v", err)
		}
		if !ok {
			t.Errorf("Pair not visible from (%s, %s)", pair[0], pair[1])
		}
	}

	aliceFriends, _ := GetFriends("alice")
	bobFriends, _ := GetFriends("bob")
	if len(aliceFriends) != 1 || aliceFriends[0] != "bob" {
		t.Errorf("GetFriends(alice) = %v", aliceFriends)
	}
	if len(bobFriends) != 1 || bobFriends[0] != "alice" {
		t.Errorf("GetFriends(bob) = %v", bobFriends)
	}

	// Delete from the reversed side.
	if err := DeleteFriendPair("bob", "alice"); err != nil {
		t.Fatalf("DeleteFriendPair failed: %v", err)
	}
	if ok, _ := FriendPairExists("alice", "bob"); ok {
		t.Error("Pair survived symmetric delete")
	}
}

func TestPointWindowQueries(t *testing.T) {
	setup(t)

	InsertPoint("alice", 1, 1, 100)
	InsertPoint("alice", 2, 2, 200)
	InsertPoint("alice", 3, 3, 300)
	InsertPoint("bob", 9, 9, 200)

	points, err := GetPointsSince("alice", 150)
	if err != nil {
		t.Fatalf("GetPointsSince failed: %v", err)
	}
	if len(points) != 2 || points[0].Time != 200 || points[1].Time != 300 {
		t.Errorf("Window query wrong: %+v", points)
	}

	if err := DeletePointsBefore("alice", 250); err != nil {
		t.Fatalf("DeletePointsBefore failed: %v", err)
	}
	n, _ := CountPoints("alice")
	if n != 1 {
		t.Errorf("Expected 1 point after eviction, got %d", n)
	}

	// Other users' points are untouched by alice's eviction.
	n, _ = CountPoints("bob")
	if n != 1 {
		t.Errorf("Eviction leaked across users, bob has %d", n)
	}
}

func TestUpdateUserStats(t *testing.T) {
	setup(t)

	if err := UpdateUserStats("alice", 120.5, 1.5); err != nil {
		t.Fatalf("UpdateUserStats failed: %v", err)
	}
	if err := UpdateUserStats("alice", 80, 2.5); err != nil {
		t.Fatalf("UpdateUserStats failed: %v", err)
	}

	user, err := GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if user.TotalDistance != 200.5 {
		t.Errorf("total_distance = %f, want 200.5", user.TotalDistance)
	}
	if len(user.SpeedPoints) != 2 || user.SpeedPoints[1] != 2.5 {
		t.Errorf("speed_points = %v", user.SpeedPoints)
	}
}

func TestEmailUniqueness(t *testing.T) {
	setup(t)

	if err := CreateUser("dave", "hash", "alice@example.com"); err == nil {
		t.Error("Duplicate email accepted")
	}
}
