package handlers

import (
	"encoding/json"
	"log"

	"geopoint/models"
)

// maxFrameSize is the inbound frame ceiling in bytes. Oversized and
// malformed frames get a soft failure reply; the connection stays open.
const maxFrameSize = 10000

// HandlerFunc is an action implementation. It returns reply data on
// success or a typed domain failure.
type HandlerFunc func(c *Client, args map[string]interface{}) (interface{}, *models.APIError)

// Action is one entry of the startup-time registration table: the
// required argument names, whether an authenticated identity is needed,
// and the handler itself. Arguments are validated against this table
// before the handler runs.
type Action struct {
	Args   []string
	Auth   bool
	Handle HandlerFunc
}

// Dispatch parses one inbound frame, resolves it against the action
// table, validates and authorizes it, invokes the handler and queues
// exactly one reply on the issuing connection. It runs as its own
// goroutine per frame.
func (s *Server) Dispatch(c *Client, raw []byte) {
	if len(raw) > maxFrameSize {
		c.reply(models.Fail(models.PushID, "MESSAGE_TOO_LONG", nil))
		return
	}

	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.reply(models.Fail(models.PushID, "JSON_DECODE_ERROR", nil))
		return
	}

	action, ok := frame["action"].(string)
	if !ok {
		c.reply(models.Fail(models.PushID, "ACTION_NOT_DEFINED", nil))
		return
	}

	id, ok := frame["id"]
	if !ok {
		c.reply(models.Fail(models.PushID, "ID_NOT_SPECIFIED", nil))
		return
	}

	act, ok := s.actions[action]
	if !ok {
		c.reply(models.Fail(id, "UNKNOWN_ACTION", action))
		return
	}

	delete(frame, "action")
	delete(frame, "id")

	for _, name := range act.Args {
		if v, ok := frame[name]; !ok || v == nil {
			c.reply(models.Fail(id, "NOT_ENOUGH_ARGUMENTS", name))
			return
		}
	}

	if act.Auth && c.Username == "" {
		c.reply(models.Fail(id, "NEED_AUTH", nil))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Handler panic in %s: %v", action, r)
			c.reply(models.Fail(id, "INTERNAL_ERROR", nil))
		}
	}()

	data, apiErr := act.Handle(c, frame)
	if apiErr != nil {
		c.reply(models.Fail(id, apiErr.Code, apiErr.Data))
		return
	}
	c.reply(models.Success(id, "GENERIC_SUCCESS", data))
}

// internalError logs an unexpected collaborator failure and converts it
// to the generic failure code
func internalError(action string, err error) *models.APIError {
	log.Printf("Internal error in %s: %v", action, err)
	return &models.APIError{Code: "INTERNAL_ERROR"}
}

// stringArg reads a required string argument that dispatch has already
// checked for presence
func stringArg(args map[string]interface{}, name string) (string, *models.APIError) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", &models.APIError{Code: "NOT_ENOUGH_ARGUMENTS", Data: name}
	}
	return v, nil
}

// floatArg reads a required numeric argument
func floatArg(args map[string]interface{}, name string) (float64, *models.APIError) {
	v, ok := args[name].(float64)
	if !ok {
		return 0, &models.APIError{Code: "NOT_ENOUGH_ARGUMENTS", Data: name}
	}
	return v, nil
}
