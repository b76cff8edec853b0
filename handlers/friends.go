package handlers

import (
	"sync"

	"geopoint/database"
	"geopoint/models"
)

// FriendGraph owns the pending friend-request ledger. Accepted pairs
// live in the database; only the not-yet-answered edges are held here.
type FriendGraph struct {
	mu      sync.Mutex
	pending map[string]map[string]struct{} // requester -> set of targets
}

// NewFriendGraph creates an empty pending-request ledger
func NewFriendGraph() *FriendGraph {
	return &FriendGraph{pending: make(map[string]map[string]struct{})}
}

// HasPending checks for a pending edge requester -> target
func (g *FriendGraph) HasPending(requester, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[requester][target]
	return ok
}

// AddPending records a pending edge requester -> target
func (g *FriendGraph) AddPending(requester, target string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.pending[requester]
	if !ok {
		set = make(map[string]struct{})
		g.pending[requester] = set
	}
	set[target] = struct{}{}
}

// ConsumePending atomically removes the edge requester -> target and
// reports whether it existed. Answering a request twice fails here.
func (g *FriendGraph) ConsumePending(requester, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.pending[requester]
	if !ok {
		return false
	}
	if _, ok := set[target]; !ok {
		return false
	}
	delete(set, target)
	if len(set) == 0 {
		delete(g.pending, requester)
	}
	return true
}

// RequestsFor returns all usernames holding a pending edge targeting the
// given user
func (g *FriendGraph) RequestsFor(target string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	requesters := []string{}
	for requester, targets := range g.pending {
		if _, ok := targets[target]; ok {
			requesters = append(requesters, requester)
		}
	}
	return requesters
}

// handleSendFriendRequest opens a pending edge toward the target and
// notifies them if online
func (s *Server) handleSendFriendRequest(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	target, apiErr := stringArg(args, "target")
	if apiErr != nil {
		return nil, apiErr
	}

	if target == c.Username {
		return nil, &models.APIError{Code: "FRIENDS_WITH_YOURSELF"}
	}

	exists, err := database.UserExists(target)
	if err != nil {
		return nil, internalError("send_friend_request", err)
	}
	if !exists {
		return nil, &models.APIError{Code: "USER_DOES_NOT_EXIST", Data: target}
	}

	if s.Friends.HasPending(c.Username, target) {
		return nil, &models.APIError{Code: "REPEAT_FRIEND_REQUEST", Data: target}
	}

	paired, err := database.FriendPairExists(c.Username, target)
	if err != nil {
		return nil, internalError("send_friend_request", err)
	}
	if paired {
		return nil, &models.APIError{Code: "ALREADY_FRIENDS", Data: target}
	}

	s.Friends.AddPending(c.Username, target)
	s.Hub.Notify(target, "FRIEND_REQUEST", c.Username)
	return target, nil
}

// handleAcceptFriendRequest turns a pending edge into a persisted pair
func (s *Server) handleAcceptFriendRequest(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	target, apiErr := stringArg(args, "target")
	if apiErr != nil {
		return nil, apiErr
	}

	exists, err := database.UserExists(target)
	if err != nil {
		return nil, internalError("accept_friend_request", err)
	}
	if !exists {
		return nil, &models.APIError{Code: "USER_DOES_NOT_EXIST", Data: target}
	}

	// The edge points from the requester (target) at the acceptor.
	if !s.Friends.ConsumePending(target, c.Username) {
		return nil, &models.APIError{Code: "USER_NOT_SENT_FRIEND_REQUEST", Data: target}
	}

	if err := database.CreateFriendPair(target, c.Username); err != nil {
		return nil, internalError("accept_friend_request", err)
	}

	s.Hub.Notify(target, "FRIEND_LIST_CHANGED", c.Username)
	s.Hub.Notify(c.Username, "FRIEND_LIST_CHANGED", target)
	s.Hub.Notify(target, "FRIEND_REQUEST_LIST_CHANGED", c.Username)
	return target, nil
}

// handleDeclineFriendRequest drops a pending edge without persisting
// anything
func (s *Server) handleDeclineFriendRequest(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	target, apiErr := stringArg(args, "target")
	if apiErr != nil {
		return nil, apiErr
	}

	if !s.Friends.ConsumePending(target, c.Username) {
		return nil, &models.APIError{Code: "USER_NOT_SENT_FRIEND_REQUEST", Data: target}
	}

	s.Hub.Notify(c.Username, "FRIEND_REQUEST_LIST_CHANGED", target)
	return target, nil
}

// handleDeleteFriend removes a persisted pair, callable by either side
func (s *Server) handleDeleteFriend(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	target, apiErr := stringArg(args, "target")
	if apiErr != nil {
		return nil, apiErr
	}

	if target == c.Username {
		return nil, &models.APIError{Code: "REMOVE_YOURSELF"}
	}

	exists, err := database.UserExists(target)
	if err != nil {
		return nil, internalError("delete_friend", err)
	}
	if !exists {
		return nil, &models.APIError{Code: "USER_DOES_NOT_EXIST", Data: target}
	}

	paired, err := database.FriendPairExists(c.Username, target)
	if err != nil {
		return nil, internalError("delete_friend", err)
	}
	if !paired {
		return nil, &models.APIError{Code: "ALREADY_NOT_FRIENDS", Data: target}
	}

	if err := database.DeleteFriendPair(c.Username, target); err != nil {
		return nil, internalError("delete_friend", err)
	}

	s.Hub.Notify(c.Username, "FRIEND_LIST_CHANGED", target)
	s.Hub.Notify(target, "FRIEND_LIST_CHANGED", c.Username)
	return target, nil
}

// handleGetMyFriends returns all accepted friends, whichever side of the
// pair they were stored on
func (s *Server) handleGetMyFriends(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	friends, err := database.GetFriends(c.Username)
	if err != nil {
		return nil, internalError("get_my_friends", err)
	}
	if friends == nil {
		friends = []string{}
	}
	return friends, nil
}

// handleGetFriendRequests returns usernames with a pending request
// toward the caller
func (s *Server) handleGetFriendRequests(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	return s.Friends.RequestsFor(c.Username), nil
}
