package models

// User represents a registered account
type User struct {
	Username      string    `json:"username"`
	Password      string    `json:"-"` // bcrypt hash, never sent in JSON
	Email         string    `json:"email"`
	TotalDistance float64   `json:"total_distance"`
	SpeedPoints   []float64 `json:"speed_points"`
}

// UserInfo is the safe version of User for API responses
type UserInfo struct {
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	TotalDistance float64   `json:"total_distance"`
	SpeedPoints   []float64 `json:"speed_points"`
}

// ToInfo converts User to UserInfo
func (u *User) ToInfo() UserInfo {
	speeds := u.SpeedPoints
	if speeds == nil {
		speeds = []float64{}
	}
	return UserInfo{
		Username:      u.Username,
		Email:         u.Email,
		TotalDistance: u.TotalDistance,
		SpeedPoints:   speeds,
	}
}
