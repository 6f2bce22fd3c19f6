package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/store"
	"rwa-auth/pkg/db"
)

func runRole(args []string) error {
	fs := flag.NewFlagSet("role", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dsn := fs.String("database-url", os.Getenv("DATABASE_URL"), "Postgres DSN of the auth service")
	address := fs.String("address", "", "wallet address of the user")
	role := fs.String("role", domain.RoleAdmin, "new role (user|admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" || strings.TrimSpace(*address) == "" {
		return fmt.Errorf("database-url and address are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	gdb, err := db.OpenGorm(ctx, db.Config{DSN: *dsn})
	if err != nil {
		return err
	}
	user, err := setRole(ctx, store.New(gdb), strings.TrimSpace(*address), *role)
	if err != nil {
		return err
	}
	return printJSON(user)
}

// setRole updates the role of the user owning address inside one transaction.
func setRole(ctx context.Context, st *store.Store, address, role string) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	var out *domain.User
	err := st.WithTx(ctx, func(tx *store.Store) error {
		u, err := tx.Users().GetByWalletAddress(ctx, address)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", address, err)
		}
		if err := tx.Users().SetRole(ctx, u.ID, role); err != nil {
			return err
		}
		out, err = tx.Users().GetByID(ctx, u.ID)
		return err
	})
	return out, err
}
