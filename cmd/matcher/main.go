// Package main provides a CLI tool for debugging EPG channel matching.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/savid/iptv-player/internal/epg"
	"github.com/savid/iptv-player/internal/m3u"
)

const noProgramsMsg = "NO PROGRAMS"

var (
	playlistPath string
	epgPath      string
	logLevel     string
	log          = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "matcher",
		Short: "Debug EPG channel matching",
		Long: `A debugging tool to analyze how playlist channels resolve against EPG data.

Outputs detailed information about:
- Which channels resolved and by what cascade step
- Which channels failed to resolve, with close alias matches
- The current and next programme for resolved channels
- Summary statistics per strategy

Examples:
  # Using local files
  go run cmd/matcher/main.go --playlist testdata/channels.m3u --epg testdata/epg.xml

  # Using URLs
  go run cmd/matcher/main.go --playlist https://example.com/playlist.m3u --epg https://epg.example.com/epg.xml`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&playlistPath, "playlist", "", "Path or URL to M3U playlist (required)")
	rootCmd.Flags().StringVar(&epgPath, "epg", "", "Path or URL to XMLTV document (required)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "debug", "Log level (debug, info, warn, error)")

	if err := rootCmd.MarkFlagRequired("playlist"); err != nil {
		log.WithError(err).Fatal("Failed to mark playlist flag as required")
	}

	if err := rootCmd.MarkFlagRequired("epg"); err != nil {
		log.WithError(err).Fatal("Failed to mark epg flag as required")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadData fetches data from a URL or reads from a local file.
func loadData(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path) //nolint:gosec,noctx // User-provided URL for CLI tool
		if err != nil {
			return nil, fmt.Errorf("failed to fetch URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP request failed with status: %s", resp.Status)
		}

		return io.ReadAll(resp.Body)
	}

	return os.ReadFile(path)
}

func run(_ *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	// Load playlist
	log.WithField("source", playlistPath).Info("Loading playlist")

	playlistData, err := loadData(playlistPath)
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	channels, epgURLs := m3u.Parse(string(playlistData))

	log.WithFields(logrus.Fields{
		"channels": len(channels),
		"epgUrls":  len(epgURLs),
	}).Info("Parsed playlist")

	// Load EPG
	log.WithField("source", epgPath).Info("Loading EPG")

	epgData, err := loadData(epgPath)
	if err != nil {
		return fmt.Errorf("failed to load EPG: %w", err)
	}

	index := epg.NewIndex()

	epgChannels, programmes, err := epg.IngestDocument(index, strings.NewReader(string(epgData)))
	if err != nil {
		return fmt.Errorf("failed to ingest EPG: %w", err)
	}

	log.WithFields(logrus.Fields{
		"channels":   epgChannels,
		"programmes": programmes,
	}).Info("Ingested EPG data")

	analyzeResults(index, channels)

	return nil
}

// resolution holds one channel's cascade outcome.
type resolution struct {
	channel  *m3u.Channel
	epgID    string
	strategy epg.Strategy
}

// analyzeResults prints detailed matching analysis.
func analyzeResults(index *epg.Index, channels []*m3u.Channel) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("RESOLVER CASCADE RESULTS")
	fmt.Println(strings.Repeat("=", 80))

	var matched, unmatched []resolution

	byStrategy := make(map[epg.Strategy][]resolution)

	for _, ch := range channels {
		id, strategy, ok := index.ResolveStrategy(ch.TVGID, ch.Name)
		res := resolution{channel: ch, epgID: id, strategy: strategy}

		if ok {
			matched = append(matched, res)
			byStrategy[strategy] = append(byStrategy[strategy], res)
		} else {
			unmatched = append(unmatched, res)
		}
	}

	// Print matched channels grouped by cascade step
	fmt.Println("\n" + strings.Repeat("-", 80))
	fmt.Printf("RESOLVED CHANNELS (%d/%d)\n", len(matched), len(channels))
	fmt.Println(strings.Repeat("-", 80))

	strategies := []epg.Strategy{
		epg.StrategyDeclaredID,
		epg.StrategyDeclaredIDAlias,
		epg.StrategyDisplayNameAlias,
		epg.StrategyDisplayNameID,
		epg.StrategyAliasPrefix,
		epg.StrategyNormalized,
	}

	now := time.Now()

	for _, strategy := range strategies {
		group := byStrategy[strategy]
		if len(group) == 0 {
			continue
		}

		fmt.Printf("\n  [%s] (%d channels)\n", strings.ToUpper(string(strategy)), len(group))

		for _, res := range group {
			progCount := len(index.ProgrammesFor(res.epgID))
			programInfo := fmt.Sprintf("%d programs", progCount)

			if progCount == 0 {
				programInfo = noProgramsMsg
			}

			fmt.Printf("    %-40s -> %-30s [%s]\n",
				truncate(res.channel.Name, 40),
				truncate(res.epgID, 30),
				programInfo,
			)

			printNowNext(index, res.channel, now)
		}
	}

	// Print unmatched channels with close matches from the alias table
	fmt.Println("\n" + strings.Repeat("-", 80))
	fmt.Printf("UNRESOLVED CHANNELS (%d/%d)\n", len(unmatched), len(channels))
	fmt.Println(strings.Repeat("-", 80))

	if len(unmatched) == 0 {
		fmt.Println("  All channels resolved!")
	} else {
		aliases := index.Aliases()

		for _, res := range unmatched {
			fmt.Printf("\n  %s\n", res.channel.Name)
			fmt.Printf("    tvg-id: %q\n", res.channel.TVGID)

			closeMatches := findClosestMatches(res.channel.Name, aliases)
			if len(closeMatches) > 0 {
				fmt.Println("    close matches in EPG:")

				for _, match := range closeMatches {
					fmt.Printf("      - %s\n", match)
				}
			} else {
				fmt.Println("    no close matches found")
			}
		}
	}

	// Print summary
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	matchRate := 0.0
	if len(channels) > 0 {
		matchRate = float64(len(matched)) / float64(len(channels)) * 100
	}

	fmt.Printf("  Total playlist channels: %d\n", len(channels))
	fmt.Printf("  Resolved:                %d (%.1f%%)\n", len(matched), matchRate)
	fmt.Printf("  Unresolved:              %d\n", len(unmatched))
	fmt.Println()
	fmt.Printf("  By strategy:\n")

	for _, strategy := range strategies {
		fmt.Printf("    %-20s %d\n", string(strategy)+":", len(byStrategy[strategy]))
	}

	fmt.Println(strings.Repeat("=", 80))
}

// printNowNext shows the airing and next programme for a resolved channel.
func printNowNext(index *epg.Index, ch *m3u.Channel, now time.Time) {
	current, hasCurrent := index.CurrentProgrammeAt(ch.TVGID, ch.Name, now)
	upcoming := index.UpcomingProgrammesAt(ch.TVGID, ch.Name, now, 1)

	if !hasCurrent && len(upcoming) > 0 {
		current = upcoming[0]
		upcoming = nil
		hasCurrent = true
	}

	if hasCurrent {
		fmt.Printf("      now:  %s (%s - %s)\n",
			truncate(current.Title, 40),
			current.Start.Format("15:04"),
			current.Stop.Format("15:04"),
		)
	}

	if len(upcoming) > 0 {
		fmt.Printf("      next: %s (%s)\n",
			truncate(upcoming[0].Title, 40),
			upcoming[0].Start.Format("15:04"),
		)
	}
}

// findClosestMatches finds aliases with similar names using simple token matching.
func findClosestMatches(name string, aliases []epg.AliasEntry) []string {
	tokens := strings.Fields(strings.ToLower(name))
	if len(tokens) == 0 {
		return nil
	}

	type scored struct {
		name  string
		score int
	}

	candidates := make([]scored, 0, 10)

	for _, alias := range aliases {
		aliasTokens := strings.Fields(strings.ToLower(alias.Name))

		matches := 0

		for _, t1 := range tokens {
			for _, t2 := range aliasTokens {
				if t1 == t2 {
					matches++

					break
				}
			}
		}

		if matches > 0 {
			candidates = append(candidates, scored{name: alias.Name, score: matches})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	result := make([]string, 0, 5)

	for i := 0; i < len(candidates) && i < 5; i++ {
		result = append(result, candidates[i].name)
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen-3] + "..."
}
