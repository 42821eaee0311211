package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/config"
	"github.com/opsis/opsis-backend/internal/database"
	"github.com/opsis/opsis-backend/internal/logger"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// create-user provisions a local password account, or resets the password of an
// existing one with the same email.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "")

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create OPSIS User ===")

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Fatal().Err(err).Msg("Failed to look up user")
	}

	var firstName, lastName string
	role := model.RoleStudent
	if existing == nil {
		fmt.Print("Enter First Name: ")
		firstName, _ = reader.ReadString('\n')
		firstName = strings.TrimSpace(firstName)

		fmt.Print("Enter Last Name: ")
		lastName, _ = reader.ReadString('\n')
		lastName = strings.TrimSpace(lastName)

		fmt.Print("Enter Role (student/instructor/admin, default student): ")
		roleStr, _ := reader.ReadString('\n')
		if roleStr = strings.TrimSpace(roleStr); roleStr != "" {
			role = model.Role(strings.ToLower(roleStr))
			if !role.Valid() {
				fmt.Println("Error: unknown role")
				return
			}
		}
	} else {
		fmt.Printf("User %s already exists, setting a new password.\n", existing.Email)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	if existing != nil {
		if err := users.UpdatePassword(ctx, existing.ID, string(hashedPassword)); err != nil {
			log.Fatal().Err(err).Msg("Failed to update password")
		}
		revoked := revokeSessions(ctx, cfg, log, existing.ID)
		fmt.Printf("\nSuccess! Password updated for '%s' (%s), %d session(s) revoked\n", existing.Email, existing.ID, revoked)
		return
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		PasswordHash: string(hashedPassword),
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fmt.Println("Error: a user with this email already exists")
			return
		}
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! %s '%s' created with ID: %s\n", user.Role, user.Email, user.ID)
}

// revokeSessions logs the user out everywhere after a password reset. Redis being
// unreachable is reported but does not undo the reset.
func revokeSessions(ctx context.Context, cfg *config.Config, log zerolog.Logger, userID string) int {
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, existing sessions stay valid until they expire")
		return 0
	}
	defer rdb.Close()

	n, err := repository.NewSessionRepository(rdb).DeleteAll(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to revoke sessions")
	}
	return n
}
