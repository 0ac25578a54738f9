package domain

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestSession_IsExpired(t *testing.T) {
	assert.True(t, (&Session{ExpiresAt: time.Now().Add(-time.Second)}).IsExpired())
	assert.True(t, (&Session{}).IsExpired(), "zero expiry")
	assert.False(t, (&Session{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
}

func TestAuthContext_Gates(t *testing.T) {
	for role, want := range map[Role][2]bool{
		RoleViewer:  {false, false},
		RoleAnalyst: {false, true},
		RoleAuditor: {false, true},
		RoleAdmin:   {true, true},
	} {
		ac := &AuthContext{UserID: "u1", Role: role}
		assert.Equal(t, want[0], ac.IsAdmin(), "%s admin", role)
		assert.Equal(t, want[1], ac.CanReview(), "%s review", role)
	}
}

func TestAuthRequests_Validation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Struct(LoginRequest{Email: "kim@example.com", Password: "x"}))
	assert.Error(t, v.Struct(LoginRequest{Email: "kim", Password: "x"}))
	assert.Error(t, v.Struct(LoginRequest{Email: "kim@example.com"}))

	assert.Error(t, v.Struct(RefreshRequest{}))

	assert.NoError(t, v.Struct(ChangePasswordRequest{CurrentPassword: "old", NewPassword: "long-enough"}))
	assert.Error(t, v.Struct(ChangePasswordRequest{CurrentPassword: "old", NewPassword: "short"}))
	assert.Error(t, v.Struct(ChangePasswordRequest{NewPassword: "long-enough"}))
}
