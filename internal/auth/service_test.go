package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

var errAuth = errors.New("db error")

func userColumns() []string {
	return []string{"id", "email", "password_hash", "role", "vehicle_id", "created_at"}
}

func TestLogin(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	mock.ExpectQuery(`SELECT id, email, password_hash, role, COALESCE\(vehicle_id, ''\), created_at`).
		WithArgs("driver@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns()).
			AddRow("user-1", "driver@example.com", string(hash), "driver", "van-1", time.Now()))

	svc := NewService("test-secret", mock)
	user, tokens, err := svc.Login(context.Background(), LoginRequest{Email: "driver@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "user-1" || tokens.AccessToken == "" {
		t.Fatalf("expected user and access token")
	}
	if tokens.TokenType != "Bearer" || tokens.ExpiresIn != int64(accessTokenTTL.Seconds()) {
		t.Fatalf("unexpected token metadata: %+v", tokens)
	}

	claims, err := svc.ValidateAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "driver" || claims.VehicleID != "van-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)

	mock.ExpectQuery(`SELECT id, email, password_hash, role, COALESCE\(vehicle_id, ''\), created_at`).
		WithArgs("driver@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns()).
			AddRow("user-1", "driver@example.com", string(hash), "driver", "", time.Now()))

	svc := NewService("test-secret", mock)
	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "driver@example.com", Password: "wrong"})
	if err == nil {
		t.Fatalf("expected invalid credentials")
	}
}

func TestLoginQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, email, password_hash, role, COALESCE\(vehicle_id, ''\), created_at`).
		WithArgs("driver@example.com").
		WillReturnError(errAuth)

	svc := NewService("test-secret", mock)
	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "driver@example.com", Password: "pass"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateAccessTokenInvalid(t *testing.T) {
	svc := NewService("test-secret", nil)
	if _, err := svc.ValidateAccessToken("invalid-token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	signer := NewService("secret-a", nil)
	token, err := signer.signToken(User{ID: "user-1", Role: "driver"})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	verifier := NewService("secret-b", nil)
	if _, err := verifier.ValidateAccessToken(token); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}
