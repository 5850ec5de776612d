package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

func (db *DB) CreateUser(req models.UserRequest) (*models.User, error) {
	utils.LogDB("Creating user: %s (%s)", req.Username, req.Email)
	start := time.Now()

	if err := utils.ValidateUserRequest(&req, false); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.LogError("Failed to hash password: %v", err)
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	result, err := db.Exec(`
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES (?, ?, ?, ?, ?)
	`, req.Username, req.Email, hashedPassword, role, isActive)

	if err != nil {
		duration := time.Since(start)
		utils.LogError("CreateUser failed: %v (%v)", err, duration)
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		utils.LogError("Failed to get LastInsertId for user: %v", err)
		return nil, err
	}

	duration := time.Since(start)
	utils.LogDB("User created with ID %d in %v", id, duration)

	return db.GetUserByID(int(id))
}

func (db *DB) GetUserByID(id int) (*models.User, error) {
	utils.LogDB("Getting user by ID: %d", id)

	var user models.User
	err := db.QueryRow(`
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("User ID %d not found", id)
		} else {
			utils.LogError("GetUserByID(%d) failed: %v", id, err)
		}
		return nil, err
	}

	return &user, nil
}

func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	utils.LogDB("Getting user by username: %s", username)

	var user models.User
	err := db.QueryRow(`
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users WHERE username = ?
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("User %s not found", username)
		} else {
			utils.LogError("GetUserByUsername(%s) failed: %v", username, err)
		}
		return nil, err
	}

	return &user, nil
}

func (db *DB) AuthenticateUser(username, password string) (*models.User, error) {
	utils.LogDB("Authenticating user: %s", username)

	var user models.User
	var passwordHash string

	err := db.QueryRow(`
		SELECT id, username, email, role, is_active, created_at, updated_at, password_hash
		FROM users WHERE username = ? AND is_active = 1
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt, &passwordHash)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("Authentication failed: user %s not found or inactive", username)
		} else {
			utils.LogError("AuthenticateUser(%s) failed: %v", username, err)
		}
		return nil, fmt.Errorf("invalid credentials")
	}

	if !utils.CheckPassword(passwordHash, password) {
		utils.LogDB("Authentication failed: invalid password for user %s", username)
		return nil, fmt.Errorf("invalid credentials")
	}

	utils.LogDB("User %s authenticated successfully", username)
	return &user, nil
}

func (db *DB) UpdateUser(id int, req models.UserRequest) (*models.User, error) {
	utils.LogDB("Updating user ID %d", id)
	start := time.Now()

	if err := utils.ValidateUserRequest(&req, true); err != nil {
		return nil, err
	}

	currentUser, err := db.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	// Build update query dynamically
	var setParts []string
	var args []interface{}

	if req.Username != "" && req.Username != currentUser.Username {
		setParts = append(setParts, "username = ?")
		args = append(args, req.Username)
	}

	if req.Email != "" && req.Email != currentUser.Email {
		setParts = append(setParts, "email = ?")
		args = append(args, req.Email)
	}

	if req.Password != "" {
		hashedPassword, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		setParts = append(setParts, "password_hash = ?")
		args = append(args, hashedPassword)
	}

	if req.Role != "" && req.Role != currentUser.Role {
		setParts = append(setParts, "role = ?")
		args = append(args, req.Role)
	}

	if req.IsActive != nil && *req.IsActive != currentUser.IsActive {
		setParts = append(setParts, "is_active = ?")
		args = append(args, *req.IsActive)
	}

	if len(setParts) == 0 {
		utils.LogDB("UpdateUser(%d): no changes to apply", id)
		return currentUser, nil
	}

	setParts = append(setParts, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = ?", strings.Join(setParts, ", "))

	result, err := db.Exec(query, args...)
	if err != nil {
		duration := time.Since(start)
		utils.LogError("UpdateUser(%d) failed: %v (%v)", id, err, duration)
		return nil, err
	}

	rowsAffected, _ := result.RowsAffected()
	duration := time.Since(start)

	if rowsAffected == 0 {
		utils.LogDB("UpdateUser(%d): no rows affected (%v)", id, duration)
	} else {
		utils.LogDB("UpdateUser(%d) completed in %v", id, duration)
	}

	return db.GetUserByID(id)
}

func (db *DB) DeleteUser(id int) error {
	utils.LogDB("Deactivating user ID %d", id)
	start := time.Now()

	result, err := db.Exec("UPDATE users SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		duration := time.Since(start)
		utils.LogError("Failed to deactivate user %d: %v (%v)", id, err, duration)
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	duration := time.Since(start)

	if rowsAffected == 0 {
		utils.LogDB("DeleteUser(%d): no rows affected (%v)", id, duration)
		return fmt.Errorf("user not found")
	}

	utils.LogDB("DeleteUser(%d) completed in %v", id, duration)
	return nil
}

func (db *DB) GetAllUsers() ([]models.User, error) {
	utils.LogDB("Getting all users")
	start := time.Now()

	rows, err := db.Query(`
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		utils.LogError("GetAllUsers query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsActive,
			&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			utils.LogError("Failed to scan user row: %v", err)
			return nil, err
		}
		users = append(users, user)
	}

	duration := time.Since(start)
	utils.LogDB("GetAllUsers completed: %d users in %v", len(users), duration)
	return users, nil
}

// tokenPreview renders a token safely for logs. Tokens come straight off
// the wire and can be arbitrarily short.
func tokenPreview(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}

// Invite functions
func (db *DB) CreateInvite(email, role string, invitedBy int) (*models.Invite, error) {
	utils.LogDB("Creating invite for %s (role %s)", email, role)

	// Drop any unused invite already pending for this address
	_, err := db.Exec("DELETE FROM invites WHERE email = ? AND used_at IS NULL", email)
	if err != nil {
		utils.LogError("Failed to clean up old invites for %s: %v", email, err)
		return nil, err
	}

	if role == "" {
		role = "user"
	}

	token := utils.GenerateInviteToken()
	expiresAt := time.Now().Add(7 * 24 * time.Hour) // Invites valid for a week

	result, err := db.Exec(`
		INSERT INTO invites (email, role, token, invited_by, created_at, expires_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, ?)
	`, email, role, token, invitedBy, expiresAt)

	if err != nil {
		utils.LogError("Failed to create invite: %v", err)
		return nil, err
	}

	id, _ := result.LastInsertId()

	invite := &models.Invite{
		ID:        int(id),
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	utils.LogDB("Invite created with token: %s", tokenPreview(token))
	return invite, nil
}

func (db *DB) GetInviteByToken(token string) (*models.Invite, error) {
	utils.LogDB("Looking up invite token: %s", tokenPreview(token))

	var invite models.Invite
	err := db.QueryRow(`
		SELECT id, email, role, token, invited_by, created_at, expires_at, used_at
		FROM invites WHERE token = ? AND used_at IS NULL
	`, token).Scan(&invite.ID, &invite.Email, &invite.Role, &invite.Token,
		&invite.InvitedBy, &invite.CreatedAt, &invite.ExpiresAt, &invite.UsedAt)

	if err != nil {
		utils.LogDB("Invite token not found or already used: %s", tokenPreview(token))
		return nil, fmt.Errorf("invalid or expired invite token")
	}

	if time.Now().After(invite.ExpiresAt) {
		utils.LogDB("Invite token expired: %s", tokenPreview(token))
		return nil, fmt.Errorf("invite token has expired")
	}

	return &invite, nil
}

func (db *DB) MarkInviteUsed(id int) error {
	_, err := db.Exec("UPDATE invites SET used_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		utils.LogError("Failed to mark invite %d used: %v", id, err)
	}
	return err
}
