package models

// GeoPoint is a single recorded location sample. Time is unix seconds.
type GeoPoint struct {
	Username string  `json:"-"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Time     float64 `json:"time"`
}

// FriendPoint is a location sample tagged with the friend it belongs to,
// used by the friend-feed query.
type FriendPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Time   float64 `json:"time"`
	Friend string  `json:"friend"`
}
