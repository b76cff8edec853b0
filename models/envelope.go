package models

// PushID is the sentinel id carried by unsolicited server pushes and by
// failure replies to frames whose own id could not be read.
const PushID = -1

// Response is the outbound frame envelope, shared by direct replies and
// pushed notifications.
type Response struct {
	ID     interface{} `json:"id"`
	Status string      `json:"status"`
	Code   string      `json:"code"`
	Data   interface{} `json:"data"`
}

// Success builds a success reply echoing the caller-supplied id.
func Success(id interface{}, code string, data interface{}) Response {
	return Response{ID: id, Status: "success", Code: code, Data: data}
}

// Fail builds a failure reply with a machine-readable code and optional
// echo data (e.g. the offending username).
func Fail(id interface{}, code string, data interface{}) Response {
	return Response{ID: id, Status: "fail", Code: code, Data: data}
}

// APIError is a domain failure surfaced to the client as a fail envelope.
type APIError struct {
	Code string
	Data interface{}
}

func (e *APIError) Error() string {
	return e.Code
}
