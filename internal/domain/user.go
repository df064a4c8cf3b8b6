package domain

import (
	"strings"
	"time"
)

// AdminKeyPrefix namespaces admin accounts in the key/value store.
const AdminKeyPrefix = "admin:"

// AdminUser is an account allowed into the admin console
type AdminUser struct {
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FullName       string     `json:"fullName,omitempty"`
	HashedPassword string     `json:"hashedPassword"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
}

// AdminKey returns the store key for a username
func AdminKey(username string) string {
	return AdminKeyPrefix + NormalizeUsername(username)
}

// NormalizeUsername trims and lowercases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
