package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"brand-archetype-api/models"
)

// Environment utilities
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetEnvMillis reads a millisecond count from the environment.
func GetEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// Validation utilities
func ValidateUserRequest(req *models.UserRequest, isUpdate bool) error {
	if strings.TrimSpace(req.Username) == "" {
		return fmt.Errorf("username is required")
	}

	if strings.TrimSpace(req.Email) == "" {
		return fmt.Errorf("email is required")
	}

	// Password required for creation, optional for updates
	if !isUpdate && strings.TrimSpace(req.Password) == "" {
		return fmt.Errorf("password is required")
	}

	if req.Password != "" && len(req.Password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	validRoles := []string{"user", "admin"}
	if req.Role != "" {
		roleValid := false
		for _, role := range validRoles {
			if req.Role == role {
				roleValid = true
				break
			}
		}
		if !roleValid {
			return fmt.Errorf("invalid role: %s", req.Role)
		}
	}

	return nil
}
