package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/logitrack/internal/adapter/auth"
	"github.com/rl1809/logitrack/internal/adapter/storage"
	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/core/service"
)

const (
	managerToken = "manager-secret"
	userToken    = "user-secret"
)

type testApp struct {
	layer     *cache.Layer
	inventory *service.InventoryService
	orders    *service.OrderService
	auth      *auth.StaticAuthenticator
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	backend, err := storage.NewRistrettoAdapter(storage.DefaultRistrettoConfig())
	require.NoError(t, err)
	layer, err := cache.New(cache.Options{Backend: backend})
	require.NoError(t, err)
	t.Cleanup(func() { _ = layer.Close(context.Background()) })

	deps := service.Dependencies{Store: storage.NewMemoryAdapter(), Cache: layer}
	return &testApp{
		layer:     layer,
		inventory: service.NewInventoryService(deps),
		orders:    service.NewOrderService(deps),
		auth: auth.NewStaticAuthenticator([]auth.Credential{
			{Token: managerToken, Subject: "alice", Roles: []string{domain.RoleManager, domain.RoleUser}},
			{Token: userToken, Subject: "bob", Roles: []string{domain.RoleUser}},
		}),
	}
}
