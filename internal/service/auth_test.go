package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fluffy-dev/The-Loom/internal/domain"
	"github.com/fluffy-dev/The-Loom/internal/repository"
	"github.com/fluffy-dev/The-Loom/internal/repository/mocks"
	"github.com/fluffy-dev/The-Loom/internal/service"
)

const testSecret = "very-secret-key"

func newAuthService(t *testing.T, repo *mocks.UserRepository) *service.AuthService {
	t.Helper()
	s, err := service.NewAuthService(repo, testSecret, 1)
	require.NoError(t, err)
	return s
}

func TestNewAuthService_EmptySecret(t *testing.T) {
	_, err := service.NewAuthService(new(mocks.UserRepository), "", 1)
	assert.Error(t, err)
}

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "newbie").Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		return user.Username == "newbie" &&
			bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("StrongPass123")) == nil
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 5
		}).
		Return(nil).Once()

	// Act
	user, err := authService.Register(ctx, "newbie", "StrongPass123", "newbie@example.com")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)
	assert.Equal(t, "newbie@example.com", user.Email)
	assert.Empty(t, user.Password, "password hash must not leak")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "existing").Return(&domain.User{ID: 10, Username: "existing"}, nil).Once()

	_, err := authService.Register(ctx, "existing", "password", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Register_SaveDuplicate(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "racer").Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).Return(repository.ErrDuplicateEntry).Once()

	_, err := authService.Register(ctx, "racer", "password", "")

	assert.ErrorIs(t, err, service.ErrRegistrationFailed)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	authService := newAuthService(t, new(mocks.UserRepository))

	_, err := authService.Register(context.Background(), "", "pw", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	mockUserRepo.On("FindByUsername", ctx, "alice").Return(&domain.User{ID: 42, Username: "alice", Password: string(hash)}, nil)

	token, err := authService.Login(ctx, "alice", "correct")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := authService.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	_, err = authService.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound).Once()

	_, err := authService.Login(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestAuthService_VerifyToken_Rejects(t *testing.T) {
	authService := newAuthService(t, new(mocks.UserRepository))

	sign := func(secret string, claims jwt.Claims, method jwt.SigningMethod) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(7),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	badSubject := jwt.RegisteredClaims{
		Subject:   "not-a-number",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"wrong secret": sign("other-secret", valid, jwt.SigningMethodHS256),
		"wrong method": sign(testSecret, valid, jwt.SigningMethodHS512),
		"expired":      sign(testSecret, expired, jwt.SigningMethodHS256),
		"bad subject":  sign(testSecret, badSubject, jwt.SigningMethodHS256),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authService.VerifyToken(token)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}
}

func TestAuthService_LookupUser(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByID", ctx, uint(1)).Return(&domain.User{ID: 1, Username: "a"}, nil).Once()
	mockUserRepo.On("FindByID", ctx, uint(2)).Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("FindByID", ctx, uint(3)).Return(nil, errors.New("connection refused")).Once()

	user, err := authService.LookupUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", user.Username)

	_, err = authService.LookupUser(ctx, 2)
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = authService.LookupUser(ctx, 3)
	assert.ErrorIs(t, err, service.ErrInternalServer)

	mockUserRepo.AssertExpectations(t)
}
