package main

import (
	"context"
	"errors"
	"testing"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSetRole(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:walletctl_role?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(gdb)
	ctx := context.Background()
	if err := st.AutoMigrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	u := &domain.User{WalletAddress: "neutron1abc", Email: domain.SyntheticEmail("neutron1abc"), Role: domain.RoleUser}
	if err := st.Users().Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := setRole(ctx, st, "neutron1abc", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if got.Role != domain.RoleAdmin {
		t.Fatalf("role = %q", got.Role)
	}

	if _, err := setRole(ctx, st, "neutron1missing", domain.RoleAdmin); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("missing user: err = %v", err)
	}
	if _, err := setRole(ctx, st, "neutron1abc", "root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
