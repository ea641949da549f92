// Package main is the entry point for the IPTV player.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/savid/iptv-player/internal/config"
	"github.com/savid/iptv-player/internal/server"
)

var (
	cfg = config.DefaultConfig()
	log = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "iptv-player",
		Short: "IPTV playlist player with EPG guide resolution",
		Long: `Loads an M3U/M3U8 playlist, merges duplicate channels, ingests the
playlist's XMLTV guide feeds, and serves a JSON API for channel browsing,
now/next guide queries, and playback control.`,
		RunE: run,
	}

	// Required flags
	rootCmd.Flags().StringVar(&cfg.PlaylistURL, "playlist", "", "M3U playlist URL or file path (required)")

	if err := rootCmd.MarkFlagRequired("playlist"); err != nil {
		log.WithError(err).Fatal("Failed to mark playlist flag as required")
	}

	// Optional flags
	rootCmd.Flags().StringVar(&cfg.EPGURL, "epg", "", "Extra XMLTV feed URLs, comma-separated")
	rootCmd.Flags().StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Bind address")
	rootCmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "Port number")
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath, "Path to the channel customization file")
	rootCmd.Flags().DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "Playlist refresh interval")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"playlist": cfg.PlaylistURL,
		"epg":      cfg.EPGURL,
	}).Info("Starting IPTV player")

	srv := server.NewServer(log, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Received shutdown signal")

	return srv.Stop()
}
