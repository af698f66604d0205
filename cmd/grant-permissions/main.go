package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/database"
	"github.com/stemsi/exstem-cbt/internal/logger"
	"github.com/stemsi/exstem-cbt/internal/repository"
	"github.com/stemsi/exstem-cbt/internal/service"
)

func main() {
	var roleName string
	flag.StringVar(&roleName, "role", "superadmin", "Role that receives every permission")
	flag.Parse()

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

	adminService := service.NewAdminService(repository.NewAdminRepository(pool))

	fmt.Println("=== Grant All Permissions ===")

	roleID, err := adminService.ResolveRole(ctx, roleName)
	if err != nil {
		log.Fatal().Err(err).Str("role", roleName).Msg("Role not found. Ensure migrations have run.")
	}

	n, err := adminService.GrantAllPermissions(ctx, roleID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to grant permissions")
	}

	fmt.Printf("\nSuccess! Role '%s' (ID %d) now holds all %d permissions.\n", roleName, roleID, n)
}
