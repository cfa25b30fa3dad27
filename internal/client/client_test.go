package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscan-io/was/v2/internal/auth"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
)

func TestNew(t *testing.T) {
	t.Run("requires config", func(t *testing.T) {
		client, err := New(nil)
		require.ErrorIs(t, err, was.ErrConfigRequired)
		assert.Nil(t, client)
	})

	t.Run("requires API endpoint", func(t *testing.T) {
		client, err := New(&was.Config{})
		require.ErrorIs(t, err, was.ErrAPIEndpointRequired)
		assert.Nil(t, client)
	})

	t.Run("requires credentials", func(t *testing.T) {
		t.Setenv(auth.EnvAccessKey, "")
		t.Setenv(auth.EnvSecretKey, "")

		client, err := New(&was.Config{APIEndpoint: "https://cloud.tenable.com"})
		require.ErrorIs(t, err, constants.ErrNoCredentialsConfigured)
		assert.Nil(t, client)
	})

	t.Run("creates client with config keys", func(t *testing.T) {
		client, err := New(&was.Config{
			APIEndpoint: "https://cloud.tenable.com",
			AccessKey:   "config-access",
			SecretKey:   "config-secret",
		})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("creates client from environment", func(t *testing.T) {
		t.Setenv(auth.EnvAccessKey, "env-access")
		t.Setenv(auth.EnvSecretKey, "env-secret")

		client, err := New(&was.Config{APIEndpoint: "https://cloud.tenable.com"})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClient_CredentialPrecedence(t *testing.T) {
	t.Setenv(auth.EnvAccessKey, "env-access")
	t.Setenv(auth.EnvSecretKey, "env-secret")

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// Keys passed in config win over the environment.
		assert.Equal(t, "accessKey=config-access; secretKey=config-secret", request.Header.Get("X-ApiKeys"))

		writeJSON(t, writer, http.StatusOK, map[string]interface{}{"items": []was.Scan{}})
	}))
	defer server.Close()

	client, err := New(&was.Config{
		APIEndpoint: server.URL,
		AccessKey:   "config-access",
		SecretKey:   "config-secret",
		Cache:       &was.CacheConfig{Type: was.CacheTypeNone},
	})
	require.NoError(t, err)

	_, err = client.Scans().List(context.Background(), nil)
	require.NoError(t, err)
}

func TestClient_Accessors(t *testing.T) {
	client := NewTestClient(t, "https://cloud.tenable.com")

	assert.NotNil(t, client.Scans())
	assert.NotNil(t, client.Applications())
	assert.NotNil(t, client.Findings())
	assert.NotNil(t, client.Vulns())
	assert.NotNil(t, client.Plugins())
	assert.NotNil(t, client.Templates())
	assert.NotNil(t, client.UserTemplates())
	assert.NotNil(t, client.Configurations())
	assert.NotNil(t, client.Folders())
	assert.NotNil(t, client.Users())
	assert.NotNil(t, client.Notes())
	assert.NotNil(t, client.Filters())
	assert.NotNil(t, client.Cache())
}

func TestClient_GetRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/was/v2/scans", request.URL.Path)
		assert.Equal(t, "running", request.URL.Query().Get("status"))

		writeJSON(t, writer, http.StatusOK, map[string]interface{}{"items": []was.Scan{{ID: "scan-1"}}})
	}))
	defer server.Close()

	client := NewTestClient(t, server.URL)

	body, err := client.GetRaw(context.Background(), "/was/v2/scans", map[string]string{"status": "running"})
	require.NoError(t, err)
	assert.Contains(t, string(body), "scan-1")
}

func TestClient_Close(t *testing.T) {
	client := NewTestClient(t, "https://cloud.tenable.com")

	require.NoError(t, client.Close())
}

func TestClient_CachedReadsShareTransportCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits++

		writeJSON(t, writer, http.StatusOK, listBody([]was.Template{{TemplateID: "tpl-scan"}}, 1))
	}))
	defer server.Close()

	client := NewCachingTestClient(t, server.URL)

	_, err := client.Templates().List(context.Background(), nil)
	require.NoError(t, err)

	_, err = client.Templates().List(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, hits)

	stats := client.Cache().GetStats()
	require.NotNil(t, stats)
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
}
