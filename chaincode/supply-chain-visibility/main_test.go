package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChaincodeRegistersContracts(t *testing.T) {
	cc, err := newChaincode()
	require.NoError(t, err)
	assert.Equal(t, "EntityRegistryContract", cc.DefaultContract)
}

func TestLoadConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("peer mode defaults", func(t *testing.T) {
		viper.Reset()
		viper.Set("log-level", "INFO")
		viper.Set("log-format", "json")

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Empty(t, cfg.ServerAddress)
	})

	t.Run("external service needs a chaincode id", func(t *testing.T) {
		viper.Reset()
		viper.Set("log-level", "info")
		viper.Set("log-format", "json")
		viper.Set("chaincode-server-address", "0.0.0.0:9999")
		viper.Set("tls-disabled", true)

		_, err := loadConfig()
		require.Error(t, err)

		viper.Set("chaincode-id", "scv:abc123")
		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.True(t, cfg.TLSDisabled)
	})

	t.Run("external service needs TLS material unless disabled", func(t *testing.T) {
		viper.Reset()
		viper.Set("log-level", "info")
		viper.Set("log-format", "console")
		viper.Set("chaincode-server-address", "0.0.0.0:9999")
		viper.Set("chaincode-id", "scv:abc123")

		_, err := loadConfig()
		assert.Error(t, err)
	})

	t.Run("unknown log format", func(t *testing.T) {
		viper.Reset()
		viper.Set("log-level", "info")
		viper.Set("log-format", "xml")

		_, err := loadConfig()
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(&config{LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestLoadTLSProperties(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		props, err := loadTLSProperties(&config{TLSDisabled: true})
		require.NoError(t, err)
		assert.True(t, props.Disabled)
	})

	t.Run("reads key material", func(t *testing.T) {
		dir := t.TempDir()
		keyFile := filepath.Join(dir, "key.pem")
		certFile := filepath.Join(dir, "cert.pem")
		caFile := filepath.Join(dir, "ca.pem")
		require.NoError(t, os.WriteFile(keyFile, []byte("key"), 0o600))
		require.NoError(t, os.WriteFile(certFile, []byte("cert"), 0o600))
		require.NoError(t, os.WriteFile(caFile, []byte("ca"), 0o600))

		props, err := loadTLSProperties(&config{TLSKeyFile: keyFile, TLSCertFile: certFile, ClientCAFile: caFile})
		require.NoError(t, err)
		assert.False(t, props.Disabled)
		assert.Equal(t, []byte("key"), props.Key)
		assert.Equal(t, []byte("cert"), props.Cert)
		assert.Equal(t, []byte("ca"), props.ClientCACerts)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadTLSProperties(&config{TLSKeyFile: "/nonexistent/key.pem", TLSCertFile: "/nonexistent/cert.pem"})
		assert.Error(t, err)
	})
}
