package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.PlaylistURL = "http://example.com/playlist.m3u"

	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid defaults with playlist URL",
			mutate: func(*Config) {},
		},
		{
			name: "local file playlist",
			mutate: func(c *Config) {
				c.PlaylistURL = "/var/lib/iptv/playlist.m3u"
			},
		},
		{
			name: "missing playlist",
			mutate: func(c *Config) {
				c.PlaylistURL = ""
			},
			wantErr: true,
		},
		{
			name: "extra epg urls",
			mutate: func(c *Config) {
				c.EPGURL = "http://a.example.com/epg.xml, http://b.example.com/epg.xml.gz"
			},
		},
		{
			name: "port too low",
			mutate: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "port too high",
			mutate: func(c *Config) {
				c.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "refresh interval too short",
			mutate: func(c *Config) {
				c.RefreshInterval = 10 * time.Second
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.BindAddr = "127.0.0.1"
	cfg.Port = 9090

	require.Equal(t, "127.0.0.1:9090", cfg.ListenAddr())
}

func TestExtraEPGURLs(t *testing.T) {
	cfg := validConfig()
	cfg.EPGURL = " http://a.example.com/epg.xml ,, http://b.example.com/epg.xml "

	require.Equal(t, []string{
		"http://a.example.com/epg.xml",
		"http://b.example.com/epg.xml",
	}, cfg.ExtraEPGURLs())

	cfg.EPGURL = ""
	require.Nil(t, cfg.ExtraEPGURLs())
}
