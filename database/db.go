package database

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"geopoint/models"
)

var DB *sql.DB

// Initialize sets up the database connection and creates tables
func Initialize() error {
	path := os.Getenv("DATABASE_PATH")
	if path == "" {
		path = "./geopoint.db"
	}
	return InitializeAt(path)
}

// InitializeAt opens the database at the given path. Tests pass ":memory:".
func InitializeAt(path string) error {
	if DB != nil {
		DB.Close()
	}

	var err error
	DB, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	if err := DB.Ping(); err != nil {
		return err
	}

	// An in-memory database lives per connection, so the pool must not
	// open a second one.
	if path == ":memory:" {
		DB.SetMaxOpenConns(1)
	}

	if err := createTables(); err != nil {
		return err
	}

	log.Println("Database initialized successfully")
	return nil
}

func createTables() error {
	tables := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		total_distance REAL NOT NULL DEFAULT 0,
		speed_points TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS friendpairs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username1 TEXT NOT NULL,
		username2 TEXT NOT NULL,
		FOREIGN KEY (username1) REFERENCES users(username),
		FOREIGN KEY (username2) REFERENCES users(username)
	);

	CREATE TABLE IF NOT EXISTS points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		time REAL NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		FOREIGN KEY (username) REFERENCES users(username)
	);

	CREATE INDEX IF NOT EXISTS idx_friendpairs_u1 ON friendpairs(username1);
	CREATE INDEX IF NOT EXISTS idx_friendpairs_u2 ON friendpairs(username2);
	CREATE INDEX IF NOT EXISTS idx_points_user_time ON points(username, time);
	`

	_, err := DB.Exec(tables)
	return err
}

// User queries

// CreateUser inserts a new user with zeroed statistics
func CreateUser(username, passwordHash, email string) error {
	_, err := DB.Exec(
		"INSERT INTO users (username, password, email) VALUES (?, ?, ?)",
		username, passwordHash, email,
	)
	return err
}

// GetUserByUsername retrieves a user by their username
func GetUserByUsername(username string) (*models.User, error) {
	return scanUser(DB.QueryRow(
		"SELECT username, password, email, total_distance, speed_points FROM users WHERE username = ?",
		username,
	))
}

// GetUserByEmail retrieves a user by their email
func GetUserByEmail(email string) (*models.User, error) {
	return scanUser(DB.QueryRow(
		"SELECT username, password, email, total_distance, speed_points FROM users WHERE email = ?",
		email,
	))
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var speeds string
	err := row.Scan(&user.Username, &user.Password, &user.Email, &user.TotalDistance, &speeds)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(speeds), &user.SpeedPoints); err != nil {
		return nil, err
	}
	return user, nil
}

// UserExists reports whether a username is taken
func UserExists(username string) (bool, error) {
	var n int
	err := DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n)
	return n > 0, err
}

// UpdateUserStats adds to the user's running distance total and appends a
// speed sample
func UpdateUserStats(username string, distance, speed float64) error {
	user, err := GetUserByUsername(username)
	if err != nil {
		return err
	}

	speeds := append(user.SpeedPoints, speed)
	encoded, err := json.Marshal(speeds)
	if err != nil {
		return err
	}

	_, err = DB.Exec(
		"UPDATE users SET total_distance = total_distance + ?, speed_points = ? WHERE username = ?",
		distance, string(encoded), username,
	)
	return err
}

// Friend pair queries

// CreateFriendPair persists an accepted friendship
func CreateFriendPair(username1, username2 string) error {
	_, err := DB.Exec(
		"INSERT INTO friendpairs (username1, username2) VALUES (?, ?)",
		username1, username2,
	)
	return err
}

// FriendPairExists checks for a pair regardless of which side each
// username was stored on
func FriendPairExists(username1, username2 string) (bool, error) {
	var n int
	err := DB.QueryRow(
		`SELECT COUNT(*) FROM friendpairs
		WHERE (username1 = ? AND username2 = ?) OR (username1 = ? AND username2 = ?)`,
		username1, username2, username2, username1,
	).Scan(&n)
	return n > 0, err
}

// DeleteFriendPair removes a friendship, symmetric like FriendPairExists
func DeleteFriendPair(username1, username2 string) error {
	_, err := DB.Exec(
		`DELETE FROM friendpairs
		WHERE (username1 = ? AND username2 = ?) OR (username1 = ? AND username2 = ?)`,
		username1, username2, username2, username1,
	)
	return err
}

// GetFriends retrieves all usernames paired with the given user
func GetFriends(username string) ([]string, error) {
	rows, err := DB.Query(
		`SELECT CASE WHEN username1 = ? THEN username2 ELSE username1 END
		FROM friendpairs WHERE username1 = ? OR username2 = ?`,
		username, username, username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		friends = append(friends, name)
	}
	return friends, rows.Err()
}

// Point queries

// InsertPoint records a location sample
func InsertPoint(username string, lat, lon, t float64) error {
	_, err := DB.Exec(
		"INSERT INTO points (username, time, lat, lon) VALUES (?, ?, ?, ?)",
		username, t, lat, lon,
	)
	return err
}

// CountPoints returns how many samples a user currently has
func CountPoints(username string) (int, error) {
	var n int
	err := DB.QueryRow("SELECT COUNT(*) FROM points WHERE username = ?", username).Scan(&n)
	return n, err
}

// GetPoints retrieves all samples for a user, oldest first
func GetPoints(username string) ([]models.GeoPoint, error) {
	return GetPointsSince(username, 0)
}

// GetPointsSince retrieves samples at or after the given unix time,
// oldest first
func GetPointsSince(username string, since float64) ([]models.GeoPoint, error) {
	rows, err := DB.Query(
		"SELECT lat, lon, time FROM points WHERE username = ? AND time >= ? ORDER BY time ASC",
		username, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.GeoPoint
	for rows.Next() {
		p := models.GeoPoint{Username: username}
		if err := rows.Scan(&p.Lat, &p.Lon, &p.Time); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeletePointsBefore evicts samples older than the cutoff
func DeletePointsBefore(username string, cutoff float64) error {
	_, err := DB.Exec("DELETE FROM points WHERE username = ? AND time < ?", username, cutoff)
	return err
}
