package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"classforge/internal/entity"
	"classforge/internal/utils"
)

type authTestEnv struct {
	users    *fakeUserRepo
	teachers *fakeTeacherRepo
	factors  *fakeAuthFactorRepo
	sessions *fakeSessionRepo
	bypass   *fakeBypassTokenRepo
	vault    *BypassVault
	provider *TOTPProvider
	svc      *AuthService
	factorSv *AuthFactorService
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	users := newFakeUserRepo()
	teachers := newFakeTeacherRepo(users)
	factors := newFakeAuthFactorRepo(teachers)
	sessions := newFakeSessionRepo()
	bypass := newFakeBypassTokenRepo()
	vault := NewBypassVault(bypass)
	provider := NewTOTPProvider("Classforge")
	logs := &fakeSecurityLogRepo{}
	logger := newTestLogger()

	manager := utils.JWTManager{
		Secret:         []byte("access-secret"),
		Issuer:         "classforge",
		AccessTokenTTL: 15 * time.Minute,
	}
	svc := NewAuthService(
		users, sessions, factors, logs, vault, provider,
		JWTAccessIssuer{Manager: &manager},
		MFATokenIssuer{Secret: []byte("mfa-secret"), Issuer: "classforge", TTL: 5 * time.Minute},
		fakeHasher{}, &fakeClock{now: time.Now()}, logger,
		Config{RefreshTokenTTL: 720 * time.Hour},
	)
	factorSv := NewAuthFactorService(factors, teachers, users, vault, provider, logs, logger)

	return &authTestEnv{
		users:    users,
		teachers: teachers,
		factors:  factors,
		sessions: sessions,
		bypass:   bypass,
		vault:    vault,
		provider: provider,
		svc:      svc,
		factorSv: factorSv,
	}
}

func (e *authTestEnv) createUser(t *testing.T, email string, password string) *entity.User {
	t.Helper()
	hash := "hashed:" + password
	user := &entity.User{
		Email:        email,
		Username:     email,
		PasswordHash: &hash,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *authTestEnv) enableOtp(t *testing.T, user *entity.User) *EnableFactorResult {
	t.Helper()
	if _, err := e.factorSv.ProvisionOtp(context.Background(), user); err != nil {
		t.Fatalf("provision: %v", err)
	}
	result, err := e.factorSv.Enable(context.Background(), user, entity.AuthFactorOtp, testCode(t, *user.OtpSecret, time.Now()))
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	return result
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newAuthTestEnv(t)
	env.createUser(t, "a@example.com", "correct-password")

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "a@example.com", "wrong-password"},
		{"unknown email", "nobody@example.com", "correct-password"},
	}
	for _, tc := range cases {
		_, err := env.svc.Login(context.Background(), LoginInput{Email: tc.email, Password: tc.password})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: err = %v, want ErrInvalidCredentials", tc.name, err)
		}
	}
}

func TestLoginRejectsUnverifiedAccount(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.createUser(t, "a@example.com", "password")
	user.IsVerified = false
	if err := env.users.Update(context.Background(), user); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("err = %v, want ErrEmailNotVerified", err)
	}
}

func TestLoginWithoutSecondFactorOpensSession(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.createUser(t, "a@example.com", "password")

	result, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.MFARequired {
		t.Fatalf("mfa demanded without a registered factor")
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("tokens missing")
	}
	if env.sessions.activeCount(user.ID) != 1 {
		t.Fatalf("session not opened")
	}
}

func TestLoginWithOtpFactorDemandsStepUp(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.createUser(t, "a@example.com", "password")
	env.enableOtp(t, user)

	result, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.MFARequired {
		t.Fatalf("step-up not demanded")
	}
	if result.AccessToken != "" || result.RefreshToken != "" {
		t.Fatalf("session tokens issued before the second factor")
	}
	if env.sessions.activeCount(user.ID) != 0 {
		t.Fatalf("session opened before the second factor")
	}

	// Complete the step-up with a current code.
	complete, err := env.svc.LoginOtp(context.Background(), LoginOtpInput{
		MFAToken: result.MFAToken,
		Code:     testCode(t, *mustReload(t, env, user).OtpSecret, time.Now()),
	})
	if err != nil {
		t.Fatalf("login otp: %v", err)
	}
	if complete.AccessToken == "" {
		t.Fatalf("no access token after step-up")
	}
	if env.sessions.activeCount(user.ID) != 1 {
		t.Fatalf("session not opened after step-up")
	}
}

func mustReload(t *testing.T, env *authTestEnv, user *entity.User) *entity.User {
	t.Helper()
	fresh, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil || fresh == nil {
		t.Fatalf("reload user: %v", err)
	}
	return fresh
}

func TestLoginOtpRejectsWrongCode(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.createUser(t, "a@example.com", "password")
	env.enableOtp(t, user)

	result, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, err = env.svc.LoginOtp(context.Background(), LoginOtpInput{MFAToken: result.MFAToken, Code: "000000"})
	if !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("err = %v, want ErrInvalidOtp", err)
	}
	_, err = env.svc.LoginOtp(context.Background(), LoginOtpInput{MFAToken: "garbage", Code: "000000"})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestLoginOtpBypassConsumesToken(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.createUser(t, "a@example.com", "password")
	enabled := env.enableOtp(t, user)
	recovery := enabled.BypassTokens[0]

	login, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	result, err := env.svc.LoginOtpBypass(context.Background(), LoginBypassInput{
		MFAToken: login.MFAToken,
		Token:    recovery,
	})
	if err != nil {
		t.Fatalf("bypass login: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatalf("no access token after bypass")
	}

	// The same recovery token is spent.
	again, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	_, err = env.svc.LoginOtpBypass(context.Background(), LoginBypassInput{
		MFAToken: again.MFAToken,
		Token:    recovery,
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("reused bypass token: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newAuthTestEnv(t)
	env.createUser(t, "a@example.com", "password")

	login, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := env.svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}

	if _, err := env.svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("stale refresh token: err = %v, want ErrInvalidToken", err)
	}
	if _, err := env.svc.Refresh(context.Background(), refreshed.RefreshToken); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.createUser(t, "a@example.com", "password")

	for i := 0; i < 3; i++ {
		if _, err := env.svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "password"}); err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
	}
	if env.sessions.activeCount(user.ID) != 3 {
		t.Fatalf("expected 3 open sessions")
	}

	if err := env.svc.LogoutAll(context.Background(), user.ID, nil); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if env.sessions.activeCount(user.ID) != 0 {
		t.Fatalf("sessions survived logout-all")
	}
}
