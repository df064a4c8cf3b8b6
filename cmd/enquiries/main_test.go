package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"enquirydesk/internal/config"
	"enquirydesk/internal/console"
	"enquirydesk/internal/domain"
	"enquirydesk/internal/server"
	"enquirydesk/internal/services"
	"enquirydesk/internal/store"
	"enquirydesk/internal/util"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *services.EnquiryService) {
	t.Helper()

	cfg := &config.Config{
		App:  config.AppConfig{Name: "Enquiry Desk API", Version: "test", APIPrefix: "/api/v1"},
		Auth: config.AuthConfig{SecretKey: "0123456789abcdef0123456789abcdef", TokenExpiryMinutes: 60},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	kv := store.NewMemoryStore()
	log := zap.NewNop()
	enquiries := services.NewEnquiryService(kv, log)
	auth := services.NewAuthService(kv, util.NewTokenIssuer(cfg.Auth.SecretKey, time.Hour), log)
	_, err := auth.CreateAdmin(context.Background(), services.CreateAdminInput{
		Username: "admin", Email: "admin@agency.co.uk", Password: "admin-password",
	})
	require.NoError(t, err)

	api := httptest.NewServer(server.New(cfg, enquiries, auth, services.NewHealthService("test", "test"), log).Handler())
	t.Cleanup(api.Close)

	out := &bytes.Buffer{}
	return &app{
		client:    console.NewClient(api.URL + "/api/v1"),
		tokenPath: filepath.Join(t.TempDir(), "enquirydesk", "token"),
		stdin:     strings.NewReader("admin-password\n"),
		stdout:    out,
	}, out, enquiries
}

func TestApp_LoginSavesTokenAndLists(t *testing.T) {
	a, out, enquiries := newTestApp(t)
	ctx := context.Background()

	e, err := enquiries.Submit(ctx, domain.KindGeneric, &services.SubmitPayload{
		Type: "contact", ContactName: "Jane Smith", Email: "jane@northfield.co.uk",
	})
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, "login", []string{"-u", "admin"}))
	assert.Contains(t, out.String(), "Logged in as admin")

	data, err := os.ReadFile(a.tokenPath)
	require.NoError(t, err)
	assert.Equal(t, a.client.Token(), strings.TrimSpace(string(data)))
	assert.Equal(t, a.client.Token(), a.savedToken())

	out.Reset()
	require.NoError(t, a.run(ctx, "list", []string{"-search", "jane"}))
	assert.Contains(t, out.String(), e.ID)

	out.Reset()
	require.NoError(t, a.run(ctx, "status", []string{e.ID, "won"}))
	assert.Contains(t, out.String(), "is now won")

	out.Reset()
	require.NoError(t, a.run(ctx, "show", []string{e.ID}))
	assert.Contains(t, out.String(), "Jane Smith")

	file := filepath.Join(t.TempDir(), "out.xlsx")
	out.Reset()
	require.NoError(t, a.run(ctx, "export", []string{"-o", file}))
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	require.NoError(t, a.run(ctx, "delete", []string{e.ID}))
	assert.Error(t, a.run(ctx, "show", []string{e.ID}))
}

func TestApp_UsageErrors(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.run(ctx, "frobnicate", nil), errUsage)
	assert.ErrorIs(t, a.run(ctx, "show", nil), errUsage)
	assert.ErrorIs(t, a.run(ctx, "status", []string{"only-id"}), errUsage)
}

func TestApp_ExportFailureRemovesFile(t *testing.T) {
	a, _, _ := newTestApp(t)
	file := filepath.Join(t.TempDir(), "out.xlsx")

	require.Error(t, a.run(context.Background(), "export", []string{"-o", file}))
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}
