package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"geopoint/database"
	"geopoint/models"
)

// activationTTL is how long a registration may sit unconfirmed.
const activationTTL = 15 * time.Minute

// ActivationStore holds registrations waiting for their emailed key.
// Expired entries are swept lazily on every register and activate call;
// staleness only affects error codes, never accepted users.
type ActivationStore struct {
	mu      sync.Mutex
	pending map[string]models.Activation // key -> activation
}

// NewActivationStore creates an empty store
func NewActivationStore() *ActivationStore {
	return &ActivationStore{pending: make(map[string]models.Activation)}
}

// sweep removes expired entries. Callers must hold the lock.
func (a *ActivationStore) sweep() {
	cutoff := time.Now().Add(-activationTTL)
	for key, act := range a.pending {
		if act.Created.Before(cutoff) {
			delete(a.pending, key)
		}
	}
}

// Clashes sweeps and reports whether a live activation already claims
// the username or the email
func (a *ActivationStore) Clashes(username, email string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweep()

	for _, act := range a.pending {
		if act.Username == username || act.Email == email {
			return true
		}
	}
	return false
}

// Reserve sweeps, rejects a clash with any live activation on username
// or email, and otherwise stores the entry under a fresh key
func (a *ActivationStore) Reserve(username, passwordHash, email string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweep()

	for _, act := range a.pending {
		if act.Username == username || act.Email == email {
			return "", false
		}
	}

	// Regenerate on the off chance a live key collides.
	key := generateKey()
	for {
		if _, taken := a.pending[key]; !taken {
			break
		}
		key = generateKey()
	}

	a.pending[key] = models.Activation{
		Username: username,
		Password: passwordHash,
		Email:    email,
		Created:  time.Now(),
	}
	return key, true
}

// Take sweeps and removes the entry for the key, if it is still live
func (a *ActivationStore) Take(key string) (models.Activation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweep()

	act, ok := a.pending[key]
	if ok {
		delete(a.pending, key)
	}
	return act, ok
}

// Drop discards a reserved entry, used when the activation email fails
func (a *ActivationStore) Drop(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, key)
}

// generateKey returns a 6-digit numeric activation key
func generateKey() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err) // crypto/rand failure is not recoverable here
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// handleRegister opens a pending registration and emails its key
func (s *Server) handleRegister(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	username, apiErr := stringArg(args, "username")
	if apiErr != nil {
		return nil, apiErr
	}
	password, apiErr := stringArg(args, "password")
	if apiErr != nil {
		return nil, apiErr
	}
	email, apiErr := stringArg(args, "email")
	if apiErr != nil {
		return nil, apiErr
	}

	if s.Activations.Clashes(username, email) {
		return nil, &models.APIError{Code: "ACTIVATION_IN_PROGRESS"}
	}

	exists, err := database.UserExists(username)
	if err != nil {
		return nil, internalError("register", err)
	}
	if exists {
		return nil, &models.APIError{Code: "USER_ALREADY_EXISTS", Data: username}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError("register", err)
	}

	key, ok := s.Activations.Reserve(username, string(hash), email)
	if !ok {
		return nil, &models.APIError{Code: "ACTIVATION_IN_PROGRESS"}
	}

	body := "Somebody has used this email to register at GeoPoint app. " +
		"If this doesn't look familiar, ignore this email.\n" +
		"Enter this key to accept: " + key
	if err := s.Mail.Send(email, "Activation", body); err != nil {
		s.Activations.Drop(key)
		return nil, internalError("register", err)
	}

	return nil, nil
}

// handleActivate consumes an emailed key and creates the user
func (s *Server) handleActivate(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	key, apiErr := stringArg(args, "key")
	if apiErr != nil {
		return nil, apiErr
	}

	act, ok := s.Activations.Take(key)
	if !ok {
		return nil, &models.APIError{Code: "INVALID_KEY"}
	}

	if err := database.CreateUser(act.Username, act.Password, act.Email); err != nil {
		return nil, internalError("activate", err)
	}
	return nil, nil
}

// handleGetTime returns the server clock as unix seconds
func (s *Server) handleGetTime(c *Client, args map[string]interface{}) (interface{}, *models.APIError) {
	return unixNow(), nil
}
