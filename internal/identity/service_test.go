package identity

import (
	"context"
	"testing"
)

func TestRegisterBindsAccount(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Phone: "+242061234567", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Account.IsZero() {
		t.Fatal("expected a ledger account to be bound at registration")
	}
	if len(user.PasswordHash) == 0 {
		t.Fatal("expected password to be hashed")
	}

	other, err := svc.Register(ctx, Credentials{Phone: "+242069876543", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register second user: %v", err)
	}
	if other.Account == user.Account {
		t.Fatal("expected distinct accounts per user")
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Phone: "", Password: "long enough"}); err == nil {
		t.Fatal("expected missing phone to be rejected")
	}
	if _, err := svc.Register(ctx, Credentials{Phone: "+242060000000", Password: "short"}); err == nil {
		t.Fatal("expected short password to be rejected")
	}
	if _, err := svc.Register(ctx, Credentials{Phone: "+242060000001", Password: "long enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Phone: "+242060000001", Password: "long enough"}); err == nil {
		t.Fatal("expected duplicate phone to be rejected")
	}
}

func TestAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, Credentials{Phone: "+242061112223", Password: "s3cret pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(ctx, Credentials{Phone: "+242061112223", Password: "s3cret pass"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != registered.ID || user.Account != registered.Account {
		t.Fatalf("authenticated wrong user: %+v", user)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Phone: "+242061112223", Password: "wrong"}); err == nil {
		t.Fatal("expected wrong password to be rejected")
	}
	if _, err := svc.Authenticate(ctx, Credentials{Phone: "+242000000000", Password: "s3cret pass"}); err == nil {
		t.Fatal("expected unknown phone to be rejected")
	}
}
