package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/database"
	"github.com/stemsi/exstem-cbt/internal/logger"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/repository"
	"github.com/stemsi/exstem-cbt/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	adminService := service.NewAdminService(repository.NewAdminRepository(pool))

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label, fallback string) string {
		fmt.Print(label)
		v, _ := reader.ReadString('\n')
		if v = strings.TrimSpace(v); v == "" {
			return fallback
		}
		return v
	}

	fmt.Println("=== Create New Admin User ===")

	name := prompt("Enter Name: ", "")
	email := prompt("Enter Email: ", "")
	if name == "" || email == "" {
		fmt.Println("Error: Name and email are required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	if len(bytePassword) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Proctors watch the monitor feed and reset logins; superadmins also edit settings.
	roleName := prompt("Enter Role (superadmin/proctor, default proctor): ", "proctor")

	// ─── Logic ─────────────────────────────────────────────────────────
	roleID, err := adminService.ResolveRole(ctx, roleName)
	if err != nil {
		fmt.Printf("Error: role %q not found\n", roleName)
		return
	}

	newAdmin := &model.Admin{
		Email:        email,
		Name:         name,
		PasswordHash: string(bytePassword),
		RoleID:       roleID,
	}

	if err := adminService.Create(ctx, newAdmin, cfg.BcryptCost); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %d\n", newAdmin.Name, newAdmin.Email, newAdmin.ID)
}
