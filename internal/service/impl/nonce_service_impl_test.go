package impl

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"rwa-auth/internal/domain"
)

func TestNonceServiceInvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewNonceServiceImpl(newMemoryNonceStore(), 0)
	if _, err := svc.Issue(ctx, "neutron1a"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	ok, err := svc.Invalidate(ctx, "neutron1a")
	if err != nil || !ok {
		t.Fatalf("first invalidate = %v, %v", ok, err)
	}
	ok, err = svc.Invalidate(ctx, "neutron1a")
	if err != nil || ok {
		t.Fatalf("second invalidate = %v, %v", ok, err)
	}
	if _, err := svc.Peek(ctx, "neutron1a"); !errors.Is(err, domain.ErrNonceNotFound) {
		t.Fatalf("peek after invalidate: %v", err)
	}
}

func TestNonceServiceConsumeRequiresMatchingValue(t *testing.T) {
	ctx := context.Background()
	svc := NewNonceServiceImpl(newMemoryNonceStore(), 0)
	nonce, err := svc.Issue(ctx, "neutron1a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if ok, _ := svc.Consume(ctx, "neutron1a", "stale"); ok {
		t.Fatal("consume with stale value should fail")
	}
	if got, err := svc.Peek(ctx, "neutron1a"); err != nil || got != nonce {
		t.Fatalf("peek = %q, %v", got, err)
	}
	if ok, _ := svc.Consume(ctx, "neutron1a", nonce); !ok {
		t.Fatal("consume with current value should succeed")
	}
	if ok, _ := svc.Consume(ctx, "neutron1a", nonce); ok {
		t.Fatal("second consume should fail")
	}
}

func TestNonceServiceTTL(t *testing.T) {
	ctx := context.Background()
	svc := NewNonceServiceImpl(newMemoryNonceStore(), time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.Issue(ctx, "neutron1a"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := svc.Peek(ctx, "neutron1a"); err != nil {
		t.Fatalf("peek before expiry: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := svc.Peek(ctx, "neutron1a"); !errors.Is(err, domain.ErrNonceNotFound) {
		t.Fatalf("peek after expiry: err = %v", err)
	}
}

func TestNonceServiceIssueUsesRandomSource(t *testing.T) {
	svc := NewNonceServiceImpl(newMemoryNonceStore(), 0)
	svc.random = bytes.NewReader(bytes.Repeat([]byte{0xab}, NonceBytes))
	nonce, err := svc.Issue(context.Background(), "neutron1a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := string(bytes.Repeat([]byte("ab"), NonceBytes)); nonce != want {
		t.Fatalf("nonce = %q", nonce)
	}

	// exhausted source
	if _, err := svc.Issue(context.Background(), "neutron1a"); err == nil {
		t.Fatal("expected error from exhausted random source")
	}
}
