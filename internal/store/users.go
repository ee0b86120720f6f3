package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/waleedsbi/atm-master/internal/models"
)

// UserStore provides data access for the AppUsers table.
type UserStore struct {
	Base
}

// NewUserStore creates a UserStore.
func NewUserStore(base Base) *UserStore {
	return &UserStore{Base: base}
}

// HashAPIKey returns the hex SHA-256 digest stored for an API key.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// GetUserByAPIKey looks up an active user by API key hash.
func (s *UserStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		u     models.User
		perms string
	)

	err := s.Pool.QueryRowContext(ctx,
		"SELECT Id, Username, Role, Permissions FROM AppUsers WHERE ApiKeyHash = @p1 AND IsActive = 1",
		HashAPIKey(apiKey),
	).Scan(&u.ID, &u.Username, &u.Role, &perms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("looking up user by API key: %w", err)
	}

	u.Permissions = splitPermissions(perms)

	return &u, nil
}

// CreateUser stores a new user and returns it together with its API key.
// The key is only ever returned here; the table keeps its hash.
func (s *UserStore) CreateUser(ctx context.Context, username, role string, perms []string) (*models.User, string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	apiKey := "atm_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")

	var id int64

	err := s.Pool.QueryRowContext(ctx, `
		INSERT INTO AppUsers (Username, Role, Permissions, ApiKeyHash)
		OUTPUT INSERTED.Id
		VALUES (@p1, @p2, @p3, @p4)`,
		username, role, strings.Join(perms, ","), HashAPIKey(apiKey),
	).Scan(&id)
	if err != nil {
		return nil, "", fmt.Errorf("creating user %s: %w", username, err)
	}

	return &models.User{ID: id, Username: username, Role: role, Permissions: perms}, apiKey, nil
}

// CountUsers returns the number of active users. It doubles as the
// readiness probe for the service tables.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.Pool.QueryRowContext(ctx, "SELECT COUNT(*) FROM AppUsers WHERE IsActive = 1").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}

	return n, nil
}
