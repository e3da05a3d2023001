// Package auth содержит логику разрешения личности: парольный вход,
// регистрацию и сведение OAuth-профилей к единой учетной записи.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/password"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

// Ошибки уровня сервиса. ErrInvalidCredentials намеренно един для трех
// внутренних случаев (нет такого email, аккаунт без пароля, неверный
// пароль) — клиент не должен различать их и перечислять аккаунты.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already taken")
)

// OAuthProfile — профиль пользователя, полученный от OAuth-провайдера.
type OAuthProfile struct {
	Provider  string  // google, facebook, x
	SubjectID string  // идентификатор пользователя у провайдера
	Email     string  // email (для X синтезируется провайдер-пакетом)
	Name      *string // отображаемое имя, может отсутствовать
}

// Session — результат успешного входа: пользователь и выпущенный токен.
type Session struct {
	UserUID string
	Email   string
	Token   string
	IsAdmin bool
}

// UserRepository описывает контракт хранилища для работы с пользователями.
type UserRepository interface {
	// CreateUserWithTrial сохраняет пользователя вместе с начальной
	// trialing-подпиской и возвращает его UID.
	CreateUserWithTrial(ctx context.Context, user models.User, trialEndsAt time.Time, platform string) (string, error)

	// GetUserByEmail возвращает пользователя по точному совпадению email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByOAuth возвращает пользователя по паре (провайдер, subject id).
	GetUserByOAuth(ctx context.Context, provider, oauthID string) (*models.User, error)

	// LinkOAuth дописывает OAuth-связку на существующий аккаунт.
	LinkOAuth(ctx context.Context, userUID, provider, oauthID string, name *string) error
}

// AuthService отвечает за регистрацию, вход и сведение OAuth-личностей.
type AuthService struct {
	users      UserRepository
	jwtMaker   jwt.Maker
	adminEmail string
	log        *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, adminEmail string, log *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtMaker:   jwtMaker,
		adminEmail: adminEmail,
		log:        log,
	}
}

// Register создает пользователя с паролем и начальным пробным периодом
// (7 дней) одной логической операцией.
// Занятый email — ErrEmailTaken независимо от того, каким способом входа
// владеет существующий аккаунт: регистрация не захватывает OAuth-аккаунты.
func (s *AuthService) Register(ctx context.Context, email, rawPassword string) (*Session, error) {
	const op = "auth.Register"
	email = strings.TrimSpace(email)

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	trialEndsAt := time.Now().UTC().Add(models.TrialPeriod)
	user := models.User{
		Email:        email,
		PasswordHash: &hashed,
	}
	uid, err := s.users.CreateUserWithTrial(ctx, user, trialEndsAt, models.PlatformGooglePlay)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.newSession(uid, email)
}

// Login проверяет пароль пользователя и выпускает токен сессии.
// Внутренние причины отказа различаются только в логах.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	const op = "auth.Login"
	email = strings.TrimSpace(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Debug("login rejected: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.HasPassword() {
		s.log.Debug("login rejected: oauth-only account", slog.String("user_uid", user.UID))
		return nil, ErrInvalidCredentials
	}
	if err := password.CompareHash(*user.PasswordHash, rawPassword); err != nil {
		s.log.Debug("login rejected: hash mismatch", slog.String("user_uid", user.UID))
		return nil, ErrInvalidCredentials
	}
	return s.newSession(user.UID, user.Email)
}

// LoginWithOAuth сводит OAuth-профиль к единой учетной записи.
//
// Порядок поиска: точное совпадение (провайдер, subject id); затем email —
// связка дописывается, если ее еще нет, а существующая чужая связка
// никогда не перезаписывается; иначе создается новый пользователь с
// пробным периодом. Гонка двух одновременных первых входов разрешается
// уникальным индексом по email: проигравший повторяет путь поиска.
func (s *AuthService) LoginWithOAuth(ctx context.Context, profile OAuthProfile) (*Session, error) {
	const op = "auth.LoginWithOAuth"

	profile.Email = strings.TrimSpace(profile.Email)
	profile.SubjectID = strings.TrimSpace(profile.SubjectID)

	user, err := s.users.GetUserByOAuth(ctx, profile.Provider, profile.SubjectID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user != nil {
		return s.newSession(user.UID, user.Email)
	}

	user, err = s.users.GetUserByEmail(ctx, profile.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user != nil {
		if !user.HasOAuthLink() {
			if err := s.users.LinkOAuth(ctx, user.UID, profile.Provider, profile.SubjectID, profile.Name); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		} else if *user.OAuthProvider != profile.Provider || *user.OAuthID != profile.SubjectID {
			// Аккаунт уже привязан к другому провайдеру: используем его
			// как есть, существующую связку не трогаем.
			s.log.Debug("oauth login reuses account with different linkage",
				slog.String("user_uid", user.UID),
				slog.String("provider", profile.Provider))
		}
		return s.newSession(user.UID, user.Email)
	}

	trialEndsAt := time.Now().UTC().Add(models.TrialPeriod)
	newUser := models.User{
		Email:         profile.Email,
		Name:          profile.Name,
		OAuthProvider: &profile.Provider,
		OAuthID:       &profile.SubjectID,
	}
	uid, err := s.users.CreateUserWithTrial(ctx, newUser, trialEndsAt, models.PlatformPayPalWeb)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			// Параллельный вход создал пользователя первым: перечитываем.
			s.log.Info("oauth create lost race, retrying lookup", sl.Err(err))
			user, err = s.users.GetUserByEmail(ctx, profile.Email)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if !user.HasOAuthLink() {
				if err := s.users.LinkOAuth(ctx, user.UID, profile.Provider, profile.SubjectID, profile.Name); err != nil {
					return nil, fmt.Errorf("%s: %w", op, err)
				}
			}
			return s.newSession(user.UID, user.Email)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.newSession(uid, profile.Email)
}

// ValidateToken проверяет токен сессии и возвращает UID пользователя.
func (s *AuthService) ValidateToken(_ context.Context, token string) (string, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserUID(), nil
}

func (s *AuthService) newSession(userUID, email string) (*Session, error) {
	token, err := s.jwtMaker.GenerateToken(userUID)
	if err != nil {
		return nil, fmt.Errorf("auth.newSession: %w", err)
	}
	return &Session{
		UserUID: userUID,
		Email:   email,
		Token:   token,
		IsAdmin: s.adminEmail != "" && email == s.adminEmail,
	}, nil
}
