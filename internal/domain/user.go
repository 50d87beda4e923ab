package domain

import "time"

// User represents a registered player. The credential hash is stored
// alongside the user by the repository but never travels with this struct.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthCredentials is the signup/login request body. Username is optional at
// the transport level; signup enforces it as a business rule.
type AuthCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
