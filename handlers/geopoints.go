package handlers

import (
	"math"
	"time"

	"geopoint/database"
	"geopoint/models"
)

const (
	// maxPoints caps how many samples one user may retain.
	maxPoints = 20000
	// retention is how old a sample may grow before eviction.
	retention = 2 * time.Hour
	// earthRadius in meters, for the equirectangular distance
	// approximation.
	earthRadius = 6371008.77
)

// unixNow returns the current time as fractional unix seconds, the unit
// the wire protocol and the points table use throughout
func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// handleGeopointPost records a sample for the caller and evicts samples
// past the retention window in the same call
func (s *Server) handleGeopointPost(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	lat, apiErr := floatArg(args, "lat")
	if apiErr != nil {
		return nil, apiErr
	}
	lon, apiErr := floatArg(args, "lon")
	if apiErr != nil {
		return nil, apiErr
	}

	count, err := database.CountPoints(c.Username)
	if err != nil {
		return nil, internalError("geopoint_post", err)
	}
	if count >= maxPoints {
		return nil, &models.APIError{Code: "TOO_MANY_POINTS"}
	}

	now := unixNow()
	if err := database.InsertPoint(c.Username, lat, lon, now); err != nil {
		return nil, internalError("geopoint_post", err)
	}
	if err := database.DeletePointsBefore(c.Username, now-retention.Seconds()); err != nil {
		return nil, internalError("geopoint_post", err)
	}
	return nil, nil
}

// handleGeopointGet returns the caller's retained samples
func (s *Server) handleGeopointGet(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	points, err := database.GetPoints(c.Username)
	if err != nil {
		return nil, internalError("geopoint_get", err)
	}
	if points == nil {
		points = []models.GeoPoint{}
	}
	return points, nil
}

// handleGeopointGetFriends returns the retained samples of every friend,
// each tagged with the friend's name
func (s *Server) handleGeopointGetFriends(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	friends, err := database.GetFriends(c.Username)
	if err != nil {
		return nil, internalError("geopoint_get_friends", err)
	}

	result := []models.FriendPoint{}
	for _, friend := range friends {
		points, err := database.GetPoints(friend)
		if err != nil {
			return nil, internalError("geopoint_get_friends", err)
		}
		for _, p := range points {
			result = append(result, models.FriendPoint{
				Lat:    p.Lat,
				Lon:    p.Lon,
				Time:   p.Time,
				Friend: friend,
			})
		}
	}
	return result, nil
}

// handleGetUserInfo returns the target's profile and stored aggregates
func (s *Server) handleGetUserInfo(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	target, apiErr := stringArg(args, "target")
	if apiErr != nil {
		return nil, apiErr
	}

	user, err := database.GetUserByUsername(target)
	if err != nil {
		return nil, &models.APIError{Code: "USER_DOES_NOT_EXIST", Data: target}
	}
	return user.ToInfo(), nil
}

// handleGetUserStats recomputes distance and speed over the requested
// window and folds the result into the target's running totals. With one
// point or none the stored aggregates are returned untouched.
func (s *Server) handleGetUserStats(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	target, apiErr := stringArg(args, "target")
	if apiErr != nil {
		return nil, apiErr
	}

	user, err := database.GetUserByUsername(target)
	if err != nil {
		return nil, &models.APIError{Code: "USER_DOES_NOT_EXIST", Data: target}
	}

	since := 0.0
	if frame, ok := args["time_frame"].(float64); ok && frame > 0 {
		since = unixNow() - frame
	}

	points, err := database.GetPointsSince(target, since)
	if err != nil {
		return nil, internalError("get_user_stats", err)
	}
	if len(points) <= 1 {
		return user.ToInfo(), nil
	}

	distance, speed := aggregate(points)
	if err := database.UpdateUserStats(target, distance, speed); err != nil {
		return nil, internalError("get_user_stats", err)
	}

	user, err = database.GetUserByUsername(target)
	if err != nil {
		return nil, internalError("get_user_stats", err)
	}
	return user.ToInfo(), nil
}

// aggregate walks consecutive sample pairs, already sorted by time
// ascending, and returns the summed segment distance and the mean
// segment speed
func aggregate(points []models.GeoPoint) (distance, meanSpeed float64) {
	var speedSum float64
	var segments int

	for i := 1; i < len(points); i++ {
		d := equirectangular(points[i-1], points[i])
		distance += d

		if dt := points[i].Time - points[i-1].Time; dt > 0 {
			speedSum += d / dt
			segments++
		}
	}

	if segments > 0 {
		meanSpeed = speedSum / float64(segments)
	}
	return distance, meanSpeed
}

// equirectangular approximates the great-circle distance in meters
// between two samples; good enough at the small angles a person covers
// inside the retention window
func equirectangular(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	x := dLon * math.Cos((lat1+lat2)/2)
	return earthRadius * math.Sqrt(x*x+dLat*dLat)
}
