package user

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	ctx := context.Background()

	created, err := svc.Register(ctx, User{
		Email:     "ayse@example.com",
		FirstName: "Ayse",
		LastName:  "Yilmaz",
	}, "s3cret-pw")
	if err != nil {
		t.Fatalf("expected register to succeed, got error: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if created.PasswordHash == "s3cret-pw" {
		t.Fatal("password stored in plaintext")
	}

	authed, err := svc.Authenticate(ctx, "ayse@example.com", "s3cret-pw")
	if err != nil {
		t.Fatalf("expected authenticate to succeed, got error: %v", err)
	}
	if authed.ID != created.ID {
		t.Fatalf("expected user %d, got %d", created.ID, authed.ID)
	}

	if _, err := svc.Authenticate(ctx, "ayse@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cret-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	ctx := context.Background()

	if _, err := svc.Register(ctx, User{Email: "ayse@example.com"}, "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, User{Email: "ayse@example.com"}, "pw"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}
