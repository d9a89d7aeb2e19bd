package users

import (
	"fmt"
	"time"
)

// User is an account of the document service.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Credentials is the body of login and register requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// CollectionName is the vector collection holding a user's uploads.
func CollectionName(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}
