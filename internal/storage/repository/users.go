package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/models"
)

const userColumns = `uid, email, name, password_hash, oauth_provider, oauth_id, country, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var name, passwordHash, oauthProvider, oauthID, country sql.NullString
	if err := row.Scan(&u.UID, &u.Email, &name, &passwordHash,
		&oauthProvider, &oauthID, &country, &u.CreatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if oauthProvider.Valid {
		u.OAuthProvider = &oauthProvider.String
	}
	if oauthID.Valid {
		u.OAuthID = &oauthID.String
	}
	if country.Valid {
		u.Country = &country.String
	}
	return u, nil
}

// CreateUserWithTrial сохраняет нового пользователя вместе с начальной
// trialing-подпиской в одной транзакции и возвращает его UID.
// Занятый email распознается как ErrEmailTaken.
func (s *Storage) CreateUserWithTrial(ctx context.Context, user models.User,
	trialEndsAt time.Time, platform string) (string, error) {
	const op = "storage.CreateUserWithTrial"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newUID string
	query := `INSERT INTO users (email, name, password_hash, oauth_provider, oauth_id)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := tx.QueryRowContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, user.OAuthProvider,
		user.OAuthID).Scan(&newUID); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query = `INSERT INTO subscriptions (user_uid, status, platform, trial_ends_at)
			 VALUES ($1, $2, $3, $4);`
	if _, err := tx.ExecContext(ctx, query,
		newUID, models.StatusTrialing, platform, trialEndsAt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по точному совпадению email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByOAuth возвращает пользователя по паре (провайдер, идентификатор
// у провайдера).
func (s *Storage) GetUserByOAuth(ctx context.Context, provider, oauthID string) (*models.User, error) {
	const op = "storage.GetUserByOAuth"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users
			  WHERE oauth_provider = $1 AND oauth_id = $2`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, provider, oauthID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// LinkOAuth дописывает OAuth-связку на существующий аккаунт. Имя
// заполняется только если оно еще не задано. Запись истории подписок
// не затрагивается.
func (s *Storage) LinkOAuth(ctx context.Context, userUID, provider, oauthID string, name *string) error {
	const op = "storage.LinkOAuth"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET oauth_provider = $1,
			      oauth_id = $2,
			      name = COALESCE(name, $3)
			  WHERE uid = $4`
	res, err := s.DB.ExecContext(ctx, query, provider, oauthID, name, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// UpdateUserCountry сохраняет код страны, определенный по IP клиента.
func (s *Storage) UpdateUserCountry(ctx context.Context, userUID, country string) error {
	const op = "storage.UpdateUserCountry"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET country = $1 WHERE uid = $2`
	if _, err := s.DB.ExecContext(ctx, query, country, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
