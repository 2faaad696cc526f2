package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := FromViper(viper.New())

	assert.Equal(t, "Uriopass", cfg.Remote.Owner)
	assert.Equal(t, "Egregoria", cfg.Remote.Repo)
	assert.Equal(t, "master", cfg.Remote.Branch)
	assert.False(t, cfg.Remote.InsecureSkipVerify)
	assert.Zero(t, cfg.Remote.Timeout)
	assert.Equal(t, "assets", cfg.Project.AssetsDir)
	assert.Equal(t, "Cargo.toml", cfg.Project.MarkerFile)
	assert.Equal(t, SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	require.NoError(t, cfg.Validate())

	assert.Equal(t,
		"https://media.githubusercontent.com/media/Uriopass/Egregoria/refs/heads/master",
		cfg.Remote.MediaBaseURL())
}

func TestFromViper_Env(t *testing.T) {
	t.Setenv("ASSETSYNC_REMOTE_BRANCH", "dev")
	t.Setenv("ASSETSYNC_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("ASSETSYNC_REMOTE_TIMEOUT", "45s")
	t.Setenv("ASSETSYNC_SOURCE", "S3")
	t.Setenv("ASSETSYNC_S3_ENDPOINT", "localhost:9000")
	t.Setenv("ASSETSYNC_S3_BUCKET", "egregoria")

	cfg := FromViper(viper.New())
	assert.Equal(t, "dev", cfg.Remote.Branch)
	assert.True(t, cfg.Remote.InsecureSkipVerify)
	assert.Equal(t, 45*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, SourceS3, cfg.Source.Kind)
	require.NoError(t, cfg.Validate())
}

func TestMediaBaseURL_Explicit(t *testing.T) {
	r := RemoteConfig{BaseURL: "http://mirror.local/assets/", Owner: "x", Repo: "y", Branch: "z"}
	assert.Equal(t, "http://mirror.local/assets", r.MediaBaseURL())
}

func TestValidate(t *testing.T) {
	base := func() *Config { return FromViper(viper.New()) }

	cfg := base()
	cfg.Source.Kind = "ftp"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Source.Kind = SourceS3
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Remote.Owner = ""
	assert.Error(t, cfg.Validate())
	cfg.Remote.BaseURL = "http://mirror.local"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Remote.Timeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Project.AssetsDir = " "
	assert.Error(t, cfg.Validate())
}
