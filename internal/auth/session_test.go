package auth

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/api"
	"storefront/internal/core"
	"storefront/internal/mock"
	apperrors "storefront/pkg/errors"
	"storefront/pkg/logging"
)

func newTestSetup(t *testing.T) (*mock.Backend, *Session, string) {
	t.Helper()
	logger, _ := logging.NewZapLogger("ERROR")
	backend := mock.NewBackend(logger)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	stateDir := t.TempDir()
	session := NewSession(stateDir, logger)
	client := api.New(srv.URL, 5*time.Second, session, logger)
	session.UseClient(client)
	return backend, session, stateDir
}

func TestLoginPersistsSession(t *testing.T) {
	backend, session, stateDir := newTestSetup(t)
	backend.SeedUser("buyer@example.com", "secret", "Buyer", core.RoleBuyer, "")

	user, err := session.Login(context.Background(), "buyer@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Buyer", user.Name)
	assert.True(t, session.Authenticated())

	// A fresh session picks the persisted token and user back up.
	logger, _ := logging.NewZapLogger("ERROR")
	reloaded := NewSession(stateDir, logger)
	assert.True(t, reloaded.Authenticated())
	require.NotNil(t, reloaded.Current())
	assert.Equal(t, user.ID, reloaded.Current().ID)
}

func TestLoginSellerRejectsBuyerAccount(t *testing.T) {
	backend, session, _ := newTestSetup(t)
	backend.SeedUser("buyer@example.com", "secret", "Buyer", core.RoleBuyer, "")

	_, err := session.LoginSeller(context.Background(), "buyer@example.com", "secret")
	require.ErrorIs(t, err, apperrors.ErrNotSeller)
	assert.Equal(t, "This account is not a seller account", err.Error())

	// The rejected login must not leave a token behind.
	assert.False(t, session.Authenticated())
	assert.Nil(t, session.Current())
}

func TestLoginSellerAcceptsSellerAccount(t *testing.T) {
	backend, session, _ := newTestSetup(t)
	backend.SeedUser("seller@example.com", "secret", "Seller", core.RoleSeller, "shop-1")

	user, err := session.LoginSeller(context.Background(), "seller@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, user.IsSeller())
	assert.True(t, session.Authenticated())
}

func TestCorruptStateFileStartsLoggedOut(t *testing.T) {
	logger, _ := logging.NewZapLogger("ERROR")
	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, "session.json"), []byte("{garbage"), 0o600))

	session := NewSession(stateDir, logger)
	assert.False(t, session.Authenticated())
	assert.Nil(t, session.Current())
}

func TestHandleUnauthorizedClearsSession(t *testing.T) {
	backend, session, stateDir := newTestSetup(t)
	backend.SeedUser("buyer@example.com", "secret", "Buyer", core.RoleBuyer, "")

	_, err := session.Login(context.Background(), "buyer@example.com", "secret")
	require.NoError(t, err)

	session.HandleUnauthorized()

	assert.False(t, session.Authenticated())
	_, err = os.Stat(filepath.Join(stateDir, "session.json"))
	assert.True(t, os.IsNotExist(err), "persisted state must be removed")
}

func TestExpiredTokenClearsOnUse(t *testing.T) {
	backend, session, _ := newTestSetup(t)
	backend.SeedUser("buyer@example.com", "secret", "Buyer", core.RoleBuyer, "")

	_, err := session.Login(context.Background(), "buyer@example.com", "secret")
	require.NoError(t, err)

	// Invalidate server-side by replacing the session with a stale token.
	logger, _ := logging.NewZapLogger("ERROR")
	stale := NewSession(t.TempDir(), logger)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	client := api.New(srv.URL, 5*time.Second, stale, logger)
	stale.UseClient(client)
	stale.token = "no-longer-valid"

	_, err = stale.Me(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.False(t, stale.Authenticated())
}

func TestCompleteExternalAuth(t *testing.T) {
	backend, session, _ := newTestSetup(t)
	backend.SeedUser("seller@example.com", "secret", "Seller", core.RoleSeller, "shop-1")
	backend.SeedOAuthCode("callback-code", "seller@example.com")

	user, err := session.CompleteExternalAuth(context.Background(), "callback-code", "app://auth/done")
	require.NoError(t, err)
	assert.True(t, user.IsSeller())
	assert.True(t, session.Authenticated())
}

func TestRegisterLogsIn(t *testing.T) {
	_, session, _ := newTestSetup(t)

	user, err := session.Register(context.Background(), api.RegisterRequest{
		Email: "new@example.com", Password: "pw", Name: "New", Role: core.RoleSeller,
	})
	require.NoError(t, err)
	assert.True(t, user.IsSeller())
	assert.NotEmpty(t, user.ShopID)
	assert.True(t, session.Authenticated())
}

func TestLogout(t *testing.T) {
	backend, session, _ := newTestSetup(t)
	backend.SeedUser("buyer@example.com", "secret", "Buyer", core.RoleBuyer, "")

	_, err := session.Login(context.Background(), "buyer@example.com", "secret")
	require.NoError(t, err)

	session.Logout()
	assert.False(t, session.Authenticated())
}
