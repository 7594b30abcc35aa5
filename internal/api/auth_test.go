package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/npeters/go-taskroom/internal/config"
	"github.com/npeters/go-taskroom/internal/database"
	"github.com/npeters/go-taskroom/internal/testutil"
	"github.com/npeters/go-taskroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTestApp(t *testing.T, mockRepo *database.MockTaskRoomRepository) *TaskRoomApp {
	t.Helper()
	return NewTaskRoomApp(http.NewServeMux(), testutil.TestLogger(t), nil, nil, mockRepo, nil, &config.Config{
		SigningKey: []byte("test-signing-key"),
	})
}

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   int
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), 42),
			userId:   42,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %d", tc.userId)
		})
	}
}

func Test_createJwtForSession(t *testing.T) {
	app := newTestApp(t, &database.MockTaskRoomRepository{})
	user := types.User{Id: 7, Name: "testuser"}

	t.Run("round trip", func(t *testing.T) {
		token, err := app.createJwtForSession(user, defaultJwtExpiration)
		assert.NoError(t, err, "expected no error creating token")
		assert.NotEmpty(t, token, "expected a signed token")

		userId, err := app.verifyToken(token)
		assert.NoError(t, err, "expected token to verify")
		assert.Equal(t, user.Id, userId, "expected user id claim to survive the round trip")
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := app.createJwtForSession(user, -time.Minute)
		assert.NoError(t, err, "expected no error creating token")

		_, err = app.verifyToken(token)
		assert.Error(t, err, "expected an expired token to be rejected")
	})

	t.Run("token signed with different key rejected", func(t *testing.T) {
		otherApp := NewTaskRoomApp(http.NewServeMux(), testutil.TestLogger(t), nil, nil,
			&database.MockTaskRoomRepository{}, nil, &config.Config{SigningKey: []byte("other-key")})
		token, err := otherApp.createJwtForSession(user, defaultJwtExpiration)
		assert.NoError(t, err, "expected no error creating token")

		_, err = app.verifyToken(token)
		assert.Error(t, err, "expected a token from a different key to be rejected")
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := app.verifyToken("not-a-token")
		assert.Error(t, err, "expected a malformed token to be rejected")
	})
}

func Test_extractUserIdFromRequest(t *testing.T) {
	app := newTestApp(t, &database.MockTaskRoomRepository{})
	token, err := app.createJwtForSession(types.User{Id: 3}, defaultJwtExpiration)
	assert.NoError(t, err, "expected no error creating token")

	tcases := []struct {
		name    string
		header  string
		userId  int
		wantErr bool
	}{
		{
			name:    "valid bearer token",
			header:  "Bearer " + token,
			userId:  3,
			wantErr: false,
		},
		{
			name:    "missing header",
			header:  "",
			wantErr: true,
		},
		{
			name:    "wrong scheme",
			header:  "Basic " + token,
			wantErr: true,
		},
		{
			name:    "bearer with empty token",
			header:  "Bearer ",
			wantErr: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			userId, err := app.extractUserIdFromRequest(req)
			if tc.wantErr {
				assert.Error(t, err, "expected an error extracting the user id")
			} else {
				assert.NoError(t, err, "expected no error extracting the user id")
				assert.Equal(t, tc.userId, userId, "expected user id to match")
			}
		})
	}
}

func Test_resolveCredential(t *testing.T) {
	mockUser := database.User{
		Id:           1,
		Name:         "testuser",
		EmailAddress: "testuser@example.com",
		Role:         "staff",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	tcases := []struct {
		name     string
		token    func(app *TaskRoomApp) string
		mockUser database.User
		mockErr  error
		wantErr  bool
	}{
		{
			name: "valid credential",
			token: func(app *TaskRoomApp) string {
				token, err := app.createJwtForSession(types.User{Id: mockUser.Id}, defaultJwtExpiration)
				assert.NoError(t, err, "expected no error creating token")
				return token
			},
			mockUser: mockUser,
			mockErr:  nil,
			wantErr:  false,
		},
		{
			name:    "missing credential",
			token:   func(app *TaskRoomApp) string { return "" },
			wantErr: true,
		},
		{
			name: "expired credential",
			token: func(app *TaskRoomApp) string {
				token, err := app.createJwtForSession(types.User{Id: mockUser.Id}, -time.Minute)
				assert.NoError(t, err, "expected no error creating token")
				return token
			},
			wantErr: true,
		},
		{
			name: "unknown account",
			token: func(app *TaskRoomApp) string {
				token, err := app.createJwtForSession(types.User{Id: mockUser.Id}, defaultJwtExpiration)
				assert.NoError(t, err, "expected no error creating token")
				return token
			},
			mockUser: database.User{},
			mockErr:  sql.ErrNoRows,
			wantErr:  true,
		},
		{
			name: "db error",
			token: func(app *TaskRoomApp) string {
				token, err := app.createJwtForSession(types.User{Id: mockUser.Id}, defaultJwtExpiration)
				assert.NoError(t, err, "expected no error creating token")
				return token
			},
			mockUser: database.User{},
			mockErr:  errors.New("db error"),
			wantErr:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockTaskRoomRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockUser != (database.User{}) || tc.mockErr != nil {
				mockRepo.On("GetAccountById", mockUser.Id).Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			user, err := app.resolveCredential(tc.token(app))

			if tc.wantErr {
				assert.Error(t, err, "expected credential resolution to fail")
				assert.Equal(t, types.User{}, user, "expected zero user on failure")
			} else {
				assert.NoError(t, err, "expected credential resolution to succeed")
				assert.Equal(t, tc.mockUser.Id, user.Id, "expected user id to match")
				assert.Equal(t, tc.mockUser.Name, user.Name, "expected name to match")
				assert.Equal(t, types.Role(tc.mockUser.Role), user.Role, "expected role to match")
			}
		})
	}
}

func Test_hashPassword(t *testing.T) {
	hash, err := hashPassword("password123")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "password123", hash, "expected hash to differ from plaintext")

	assert.True(t, verifyPassword(hash, "password123"), "expected correct password to verify")
	assert.False(t, verifyPassword(hash, "wrong-password"), "expected wrong password to fail")
}
