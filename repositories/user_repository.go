package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/stream-follow/models"
	"github.com/Dosada05/stream-follow/pagination"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

const userColumns = `u.id, u.display_name, u.indexed_name, u.avatar_url, u.avatar_full_url,
		u.created, u.last_seen, u.num_stars, u.url_by_id, u.url_by_name, u.email, u.password_hash, u.avatar_key`

type UserRepository interface {
	Create(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	// GetByIDForUpdate locks the user row for the duration of the
	// transaction. Streamer-star mutations and stream transitions take it
	// on the streamer so their calendar writes stay serialized.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetBySteamID(ctx context.Context, exec SQLExecutor, steamID string) (*models.User, error)
	GetByTwitchID(ctx context.Context, exec SQLExecutor, twitchID string) (*models.User, error)
	UpsertSteamIdentity(ctx context.Context, exec SQLExecutor, identity *models.SteamIdentity) error
	UpsertTwitchIdentity(ctx context.Context, exec SQLExecutor, identity *models.TwitchIdentity) error
	UpdateProfile(ctx context.Context, exec SQLExecutor, user *models.User) error
	// ClearURLByName resets the friendly URL on every user other than
	// keepUserID currently holding it. Last login wins the name.
	ClearURLByName(ctx context.Context, exec SQLExecutor, urlByName string, keepUserID int) error
	UpdateURLByID(ctx context.Context, exec SQLExecutor, userID int, urlByID string) error
	UpdateAvatarKey(ctx context.Context, userID int, key *string) error
	AddStars(ctx context.Context, exec SQLExecutor, userID, delta int) error
	Exists(ctx context.Context, exec SQLExecutor, id int) (bool, error)

	Streamers() pagination.Source[models.User]
	StreamersStarredBy(userID int) pagination.Source[models.User]
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		INSERT INTO users
			(display_name, indexed_name, avatar_url, avatar_full_url, created, last_seen,
			 url_by_id, url_by_name, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		user.DisplayName,
		user.IndexedName,
		user.AvatarURL,
		user.AvatarFullURL,
		user.Created,
		user.LastSeen,
		user.URLByID,
		user.URLByName,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1 FOR UPDATE`
	return r.scanUser(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) GetBySteamID(ctx context.Context, exec SQLExecutor, steamID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN steam_identities si ON si.user_id = u.id
		WHERE si.steam_id = $1`
	return r.scanUser(exec.QueryRowContext(ctx, query, steamID))
}

func (r *postgresUserRepository) GetByTwitchID(ctx context.Context, exec SQLExecutor, twitchID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN twitch_identities ti ON ti.user_id = u.id
		WHERE ti.twitch_id = $1`
	return r.scanUser(exec.QueryRowContext(ctx, query, twitchID))
}

func (r *postgresUserRepository) UpsertSteamIdentity(ctx context.Context, exec SQLExecutor, identity *models.SteamIdentity) error {
	query := `
		INSERT INTO steam_identities (user_id, steam_id, access_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (steam_id) DO UPDATE SET access_token = EXCLUDED.access_token`

	if _, err := exec.ExecContext(ctx, query, identity.UserID, identity.SteamID, identity.AccessToken); err != nil {
		return fmt.Errorf("failed to upsert steam identity: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) UpsertTwitchIdentity(ctx context.Context, exec SQLExecutor, identity *models.TwitchIdentity) error {
	query := `
		INSERT INTO twitch_identities (user_id, twitch_id, access_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (twitch_id) DO UPDATE SET access_token = EXCLUDED.access_token`

	if _, err := exec.ExecContext(ctx, query, identity.UserID, identity.TwitchID, identity.AccessToken); err != nil {
		return fmt.Errorf("failed to upsert twitch identity: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		UPDATE users
		SET display_name = $1, indexed_name = $2, avatar_url = $3, avatar_full_url = $4,
		    last_seen = $5, url_by_name = $6
		WHERE id = $7`

	result, err := exec.ExecContext(ctx, query,
		user.DisplayName,
		user.IndexedName,
		user.AvatarURL,
		user.AvatarFullURL,
		user.LastSeen,
		user.URLByName,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ClearURLByName(ctx context.Context, exec SQLExecutor, urlByName string, keepUserID int) error {
	query := `UPDATE users SET url_by_name = NULL WHERE url_by_name = $1 AND id <> $2`
	if _, err := exec.ExecContext(ctx, query, urlByName, keepUserID); err != nil {
		return fmt.Errorf("failed to clear url_by_name %q: %w", urlByName, err)
	}
	return nil
}

func (r *postgresUserRepository) UpdateURLByID(ctx context.Context, exec SQLExecutor, userID int, urlByID string) error {
	result, err := exec.ExecContext(ctx, `UPDATE users SET url_by_id = $1 WHERE id = $2`, urlByID, userID)
	if err != nil {
		return fmt.Errorf("failed to update url_by_id: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAvatarKey(ctx context.Context, userID int, key *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_key = $1 WHERE id = $2`, key, userID)
	if err != nil {
		return fmt.Errorf("failed to update avatar key: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) AddStars(ctx context.Context, exec SQLExecutor, userID, delta int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE users SET num_stars = num_stars + $1 WHERE id = $2`, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust user num_stars: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Exists(ctx context.Context, exec SQLExecutor, id int) (bool, error) {
	var exists bool
	err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Streamers lists users that currently stream at least one match, ordered by
// indexed name.
func (r *postgresUserRepository) Streamers() pagination.Source[models.User] {
	return &keysetSource[models.User]{
		db:         r.db,
		selectCols: userColumns,
		from:       "users u",
		where:      "EXISTS (SELECT 1 FROM streamed_matches s WHERE s.streamer_id = u.id)",
		primaryCol: "u.indexed_name",
		idCol:      "u.id",
		scan:       scanUserRow,
		key:        userKey,
	}
}

func (r *postgresUserRepository) StreamersStarredBy(userID int) pagination.Source[models.User] {
	return &keysetSource[models.User]{
		db:         r.db,
		selectCols: userColumns,
		from:       "users u JOIN starred_streamers ss ON ss.streamer_id = u.id",
		where:      "ss.user_id = $1",
		args:       []interface{}{userID},
		primaryCol: "ss.indexed_name",
		idCol:      "u.id",
		scan:       scanUserRow,
		key:        userKey,
	}
}

func userKey(u models.User) pagination.Cursor {
	return pagination.Cursor{Primary: u.IndexedName, ID: u.ID}
}

func (r *postgresUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&user.IndexedName,
		&user.AvatarURL,
		&user.AvatarFullURL,
		&user.Created,
		&user.LastSeen,
		&user.NumStars,
		&user.URLByID,
		&user.URLByName,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func scanUserRow(rows *sql.Rows) (models.User, error) {
	var user models.User
	err := rows.Scan(
		&user.ID,
		&user.DisplayName,
		&user.IndexedName,
		&user.AvatarURL,
		&user.AvatarFullURL,
		&user.Created,
		&user.LastSeen,
		&user.NumStars,
		&user.URLByID,
		&user.URLByName,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarKey,
	)
	return user, err
}
