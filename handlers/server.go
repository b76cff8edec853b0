package handlers

import (
	"geopoint/mail"
)

// Server owns the in-memory registries shared by all connections and the
// action table the dispatcher resolves against.
type Server struct {
	Hub         *Hub
	Friends     *FriendGraph
	Activations *ActivationStore
	Mail        mail.Sender

	actions map[string]Action
}

// NewServer wires the registries and registers the action catalog
func NewServer(sender mail.Sender) *Server {
	s := &Server{
		Hub:         NewHub(),
		Friends:     NewFriendGraph(),
		Activations: NewActivationStore(),
		Mail:        sender,
	}

	s.actions = map[string]Action{
		"get_time":               {Handle: s.handleGetTime},
		"geopoint_get":           {Auth: true, Handle: s.handleGeopointGet},
		"geopoint_get_friends":   {Auth: true, Handle: s.handleGeopointGetFriends},
		"geopoint_post":          {Args: []string{"lat", "lon"}, Auth: true, Handle: s.handleGeopointPost},
		"send_friend_request":    {Args: []string{"target"}, Auth: true, Handle: s.handleSendFriendRequest},
		"accept_friend_request":  {Args: []string{"target"}, Auth: true, Handle: s.handleAcceptFriendRequest},
		"decline_friend_request": {Args: []string{"target"}, Auth: true, Handle: s.handleDeclineFriendRequest},
		"delete_friend":          {Args: []string{"target"}, Auth: true, Handle: s.handleDeleteFriend},
		"get_my_friends":         {Auth: true, Handle: s.handleGetMyFriends},
		"get_friend_requests":    {Auth: true, Handle: s.handleGetFriendRequests},
		"get_user_info":          {Args: []string{"target"}, Auth: true, Handle: s.handleGetUserInfo},
		"get_user_stats":         {Args: []string{"target"}, Auth: true, Handle: s.handleGetUserStats},
		"register":               {Args: []string{"username", "password", "email"}, Handle: s.handleRegister},
		"activate":               {Args: []string{"key"}, Handle: s.handleActivate},
	}

	return s
}
