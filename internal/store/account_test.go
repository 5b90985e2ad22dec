// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"strings"
	"testing"

	"inkpress/internal/apperr"
	"inkpress/internal/models"
)

func TestAccountStoreCreate(t *testing.T) {
	db := testDB(t)
	s := NewAccountStore(db)
	ctx := context.Background()

	email := uniqueEmail("Create")
	a, err := s.Create(ctx, strings.Replace(email, "store-test.local", "STORE-TEST.local", 1), "Strong#123", models.AccountFlags{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM accounts WHERE id = $1", a.ID) })

	if a.Email != email {
		t.Errorf("email: got %q, want domain lower-cased %q", a.Email, email)
	}
	if !a.IsActive || a.IsVerified || a.IsStaff || a.IsSuperuser {
		t.Errorf("unexpected flags on new account: %+v", a)
	}
	if a.PasswordHash == "" || a.PasswordHash == "Strong#123" {
		t.Error("password must be stored hashed")
	}
	if !s.CheckPassword(a, "Strong#123") {
		t.Error("CheckPassword rejected the right password")
	}
	if s.CheckPassword(a, "wrong") {
		t.Error("CheckPassword accepted a wrong password")
	}

	var profiles int
	if err := db.QueryRow("SELECT COUNT(*) FROM profiles WHERE account_id = $1", a.ID).Scan(&profiles); err != nil {
		t.Fatalf("count profiles: %v", err)
	}
	if profiles != 1 {
		t.Errorf("profiles for new account = %d, want 1", profiles)
	}
}

func TestAccountStoreCreateValidation(t *testing.T) {
	db := testDB(t)
	s := NewAccountStore(db)
	ctx := context.Background()

	_, err := s.Create(ctx, "  ", "pass", models.AccountFlags{})
	v, ok := apperr.AsValidation(err)
	if !ok || v.Fields["email"][0] != MsgEmailRequired {
		t.Fatalf("empty email: got %v, want email required", err)
	}

	a, _ := testAccount(t, db, "dup")
	_, err = s.Create(ctx, a.Email, "pass", models.AccountFlags{})
	v, ok = apperr.AsValidation(err)
	if !ok || v.Fields["email"][0] != MsgEmailTaken {
		t.Fatalf("duplicate email: got %v, want email taken", err)
	}

	var profiles int
	db.QueryRow("SELECT COUNT(*) FROM profiles WHERE account_id = $1", a.ID).Scan(&profiles)
	if profiles != 1 {
		t.Errorf("duplicate attempt must not add a profile, got %d", profiles)
	}
}

func TestAccountStoreCreateSuperuser(t *testing.T) {
	db := testDB(t)
	s := NewAccountStore(db)

	a, err := s.CreateSuperuser(context.Background(), uniqueEmail("super"), "Strong#123")
	if err != nil {
		t.Fatalf("CreateSuperuser: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM accounts WHERE id = $1", a.ID) })

	if !a.IsVerified || !a.IsStaff || !a.IsSuperuser {
		t.Errorf("superuser flags not set: %+v", a)
	}
}

func TestAccountStoreFindAndMutate(t *testing.T) {
	db := testDB(t)
	s := NewAccountStore(db)
	ctx := context.Background()

	missing, err := s.FindByEmail(ctx, uniqueEmail("missing"))
	if err != nil || missing != nil {
		t.Fatalf("FindByEmail(missing) = %v, %v; want nil, nil", missing, err)
	}

	created, err := s.Create(ctx, uniqueEmail("find"), "Strong#123", models.AccountFlags{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM accounts WHERE id = $1", created.ID) })

	byEmail, err := s.FindByEmail(ctx, created.Email)
	if err != nil || byEmail == nil || byEmail.ID != created.ID {
		t.Fatalf("FindByEmail = %v, %v", byEmail, err)
	}

	if err := s.SetVerified(ctx, created.ID); err != nil {
		t.Fatalf("SetVerified: %v", err)
	}
	if err := s.SetPassword(ctx, created.ID, "Another#456"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := s.TouchLastLogin(ctx, created.ID); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}

	got, err := s.FindByID(ctx, created.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID = %v, %v", got, err)
	}
	if !got.IsVerified {
		t.Error("expected verified after SetVerified")
	}
	if !s.CheckPassword(got, "Another#456") {
		t.Error("new password not accepted")
	}
	if got.LastLogin == nil {
		t.Error("expected last_login after TouchLastLogin")
	}
}

func TestTokenStore(t *testing.T) {
	db := testDB(t)
	s := NewTokenStore(db)
	ctx := context.Background()
	a, _ := testAccount(t, db, "token")

	first, err := s.GetOrCreate(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(first.Key) != 40 {
		t.Errorf("key length = %d, want 40", len(first.Key))
	}

	second, err := s.GetOrCreate(ctx, a.ID)
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if second.Key != first.Key {
		t.Error("GetOrCreate must return the existing token")
	}

	found, err := s.FindByKey(ctx, first.Key)
	if err != nil || found == nil || found.AccountID != a.ID {
		t.Fatalf("FindByKey = %v, %v", found, err)
	}

	if err := s.DeleteForAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteForAccount: %v", err)
	}
	found, err = s.FindByKey(ctx, first.Key)
	if err != nil || found != nil {
		t.Fatalf("FindByKey after delete = %v, %v; want nil", found, err)
	}
}

func TestProfileStoreUpdate(t *testing.T) {
	db := testDB(t)
	s := NewProfileStore(db)
	ctx := context.Background()
	a, p := testAccount(t, db, "profile")

	if p.Email != a.Email {
		t.Errorf("profile email = %q, want %q", p.Email, a.Email)
	}

	sex := models.SexFemale
	p.FirstName, p.LastName, p.Bio, p.Sex = "Ada", "Lovelace", "Analyst", &sex
	if err := s.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.SetImage(ctx, p.ID, "/media/profile/a.png"); err != nil {
		t.Fatalf("SetImage: %v", err)
	}

	got, err := s.FindByID(ctx, p.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID = %v, %v", got, err)
	}
	if got.FullName() != "Ada Lovelace" || got.Bio != "Analyst" {
		t.Errorf("profile not updated: %+v", got)
	}
	if got.Sex == nil || *got.Sex != models.SexFemale {
		t.Errorf("sex = %v, want F", got.Sex)
	}
	if got.Image == nil || *got.Image != "/media/profile/a.png" {
		t.Errorf("image = %v", got.Image)
	}
}
