package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webscan-io/was/v2/internal/auth"
)

func TestCredentials_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		creds   *auth.Credentials
		wantErr error
	}{
		{
			name:    "both keys present",
			creds:   &auth.Credentials{AccessKey: "ak", SecretKey: "sk"},
			wantErr: nil,
		},
		{
			name:    "missing access key",
			creds:   &auth.Credentials{SecretKey: "sk"},
			wantErr: auth.ErrAccessKeyRequired,
		},
		{
			name:    "missing secret key",
			creds:   &auth.Credentials{AccessKey: "ak"},
			wantErr: auth.ErrSecretKeyRequired,
		},
		{
			name:    "both keys missing",
			creds:   &auth.Credentials{},
			wantErr: auth.ErrAccessKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.creds.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCredentials_HeaderValue(t *testing.T) {
	t.Parallel()

	creds := &auth.Credentials{
		AccessKey: "AK123",
		SecretKey: "SK456",
	}

	assert.Equal(t, "accessKey=AK123; secretKey=SK456", creds.HeaderValue())
}

func TestMaskKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: ""},
		{name: "shorter than suffix", value: "AB", want: "**"},
		{name: "exactly suffix length", value: "ABCD", want: "****"},
		{name: "longer than suffix", value: "ABCDEFGH", want: "****EFGH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, auth.MaskKey(tt.value))
		})
	}
}

func TestCredentials_Masked(t *testing.T) {
	t.Parallel()

	creds := &auth.Credentials{
		AccessKey: "AAAA5678",
		SecretKey: "BBBB4321",
	}

	masked := creds.Masked()
	assert.Equal(t, "accessKey=****5678; secretKey=****4321", masked)
	assert.NotContains(t, masked, "AAAA")
	assert.NotContains(t, masked, "BBBB")
}

func TestFromEnv(t *testing.T) {
	t.Setenv(auth.EnvAccessKey, "env-access")
	t.Setenv(auth.EnvSecretKey, "env-secret")
	t.Setenv(auth.EnvProxy, "http://proxy.local:3128")

	creds, err := auth.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-access", creds.AccessKey)
	assert.Equal(t, "env-secret", creds.SecretKey)
	assert.Equal(t, "http://proxy.local:3128", creds.Proxy)
}

func TestFromEnv_Missing(t *testing.T) {
	t.Setenv(auth.EnvAccessKey, "env-access")
	t.Setenv(auth.EnvSecretKey, "")
	t.Setenv(auth.EnvProxy, "")

	_, err := auth.FromEnv()
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrEnvCredentialsMissing)
	assert.Contains(t, err.Error(), auth.EnvSecretKey)
}
