package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/aficcion/vinylbe/internal/aggregate"
	"github.com/aficcion/vinylbe/internal/cache"
	"github.com/aficcion/vinylbe/internal/catalog"
	"github.com/aficcion/vinylbe/internal/catalog/discogs"
	"github.com/aficcion/vinylbe/internal/catalog/lastfm"
	"github.com/aficcion/vinylbe/internal/catalog/musicbrainz"
	"github.com/aficcion/vinylbe/internal/config"
	"github.com/aficcion/vinylbe/internal/database"
	"github.com/aficcion/vinylbe/internal/logging"
	"github.com/aficcion/vinylbe/internal/merge"
	"github.com/aficcion/vinylbe/internal/recommend"
	"github.com/aficcion/vinylbe/internal/resolver"
	"github.com/aficcion/vinylbe/internal/scoring"
	"github.com/aficcion/vinylbe/internal/version"
	"github.com/aficcion/vinylbe/internal/watcher"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "version":
		fmt.Println("vinylbe", version.Version)
		return
	case "resolve", "recommend":
	default:
		usage()
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  vinylbe resolve <artist> [<artist> ...]   resolve top rated studio albums
  vinylbe recommend <owner>                 regenerate recommendations from listening history
  vinylbe version                           print the version`)
}

type services struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *resolver.Resolver
	lastfm   *lastfm.Client
	recs     *recommend.Store
}

func run(command string, args []string) error {
	configPath := os.Getenv("VB_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	limiter := catalog.NewRateLimiterMap()
	mb := musicbrainz.New(limiter, logger)
	dg := discogs.New(limiter, logger, cfg.Discogs.Key, cfg.Discogs.Secret)
	lfm := lastfm.New(limiter, logger, cfg.LastFM.APIKey, cfg.LastFM.Username)

	store := cache.NewStore(db, logger, time.Duration(cfg.Resolver.CacheTTLDays)*24*time.Hour)
	svc := services{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver.New(mb, dg, store, logger, cfg.Resolver.Workers),
		lastfm:   lfm,
		recs:     recommend.NewStore(db, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logging settings follow edits to the config file while a long
	// resolution is running.
	configWatcher := watcher.NewService(configPath, func(ctx context.Context) error {
		fresh, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logManager.Reconfigure(fresh.Logging)
		return nil
	}, logger)
	go configWatcher.Start(ctx)

	switch command {
	case "resolve":
		return runResolve(ctx, svc, args)
	case "recommend":
		return runRecommend(ctx, svc, args)
	}
	return nil
}

func runResolve(ctx context.Context, svc services, artists []string) error {
	if len(artists) == 0 {
		return fmt.Errorf("resolve needs at least one artist name")
	}

	for _, name := range artists {
		albums := svc.resolver.ResolveArtist(ctx, name, svc.cfg.Resolver.TopN)
		if len(albums) == 0 {
			fmt.Printf("%s: no rated studio albums found\n", name)
			continue
		}
		fmt.Printf("%s:\n", name)
		for _, al := range albums {
			rating := "unrated"
			if al.Rating != nil {
				votes := 0
				if al.Votes != nil {
					votes = *al.Votes
				}
				rating = fmt.Sprintf("%.2f (%d votes)", *al.Rating, votes)
			}
			fmt.Printf("  %s (%s)  %s\n", al.Title, al.Year, rating)
		}
	}
	return nil
}

// runRecommend builds the three ranked lists from listening history,
// merges them and applies the result to the owner's stored
// recommendations.
func runRecommend(ctx context.Context, svc services, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("recommend needs exactly one owner")
	}
	owner := args[0]

	history, err := historyList(ctx, svc)
	if err != nil {
		return fmt.Errorf("building history list: %w", err)
	}
	artistList, secondary, err := artistLists(ctx, svc)
	if err != nil {
		return fmt.Errorf("building artist lists: %w", err)
	}

	merged := merge.Lists(history, artistList, secondary)
	svc.logger.Info("recommendation lists merged",
		"history", len(history),
		"artist", len(artistList),
		"secondary", len(secondary),
		"merged", len(merged),
	)

	if err := svc.recs.Regenerate(ctx, owner, merged); err != nil {
		return fmt.Errorf("regenerating recommendations: %w", err)
	}

	recs, err := svc.recs.ListForOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("listing recommendations: %w", err)
	}
	for _, r := range recs {
		fmt.Printf("%-10s %s - %s\n", r.Status, r.Artist, r.Album)
	}
	return nil
}

// historyList aggregates the listener's recent plays into album
// recommendations. The recent-tracks feed is the one history source whose
// track rows carry album identity, which the aggregation step groups on.
func historyList(ctx context.Context, svc services) ([]merge.Recommendation, error) {
	tracks, err := svc.lastfm.RecentTrackSignals(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := svc.lastfm.ArtistSignals(ctx, scoring.RangeRecent)
	if err != nil {
		return nil, err
	}

	scoredTracks := scoring.PositionalTracks(tracks, scoring.DefaultWindow)
	scoredFavorites := scoring.PositionalArtists(favorites, scoring.DefaultWindow)
	albums := aggregate.Albums(scoredTracks, scoredFavorites, svc.logger)

	recs := make([]merge.Recommendation, 0, len(albums))
	for _, al := range albums {
		artistName := ""
		if len(al.Artists) > 0 {
			artistName = al.Artists[0].Name
		}
		// The aggregation id is a listening-feed key, not a rating-catalog
		// collection id, so it stays out of the merge's collection key.
		recs = append(recs, merge.Recommendation{
			Artist: artistName,
			Album:  al.Title,
			Source: merge.SourceHistory,
			Status: merge.StatusNeutral,
			Score:  al.Score,
		})
	}
	return recs, nil
}

// artistLists resolves top albums for the listener's current favorite
// artists (the explicit list) and for long-term favorites (the secondary
// list).
func artistLists(ctx context.Context, svc services) (artistList, secondary []merge.Recommendation, err error) {
	current, err := svc.lastfm.ArtistSignals(ctx, scoring.RangeMid)
	if err != nil {
		return nil, nil, err
	}
	longTerm, err := svc.lastfm.ArtistSignals(ctx, scoring.RangeOld)
	if err != nil {
		return nil, nil, err
	}

	artistList = resolveFor(ctx, svc, topNames(scoring.PlaycountArtists(current, scoring.DefaultWindow), 3), merge.SourceArtist)
	secondary = resolveFor(ctx, svc, topNames(scoring.PlaycountArtists(longTerm, scoring.DefaultWindow), 2), merge.SourceMixed)
	return artistList, secondary, nil
}

func resolveFor(ctx context.Context, svc services, names []string, source merge.Source) []merge.Recommendation {
	albums := svc.resolver.ResolveArtists(ctx, names, svc.cfg.Resolver.TopN)
	recs := make([]merge.Recommendation, 0, len(albums))
	for _, al := range albums {
		var score float64
		if al.Rating != nil {
			score = *al.Rating
		}
		recs = append(recs, merge.Recommendation{
			Artist:       al.Artist,
			Album:        al.Title,
			CollectionID: al.MasterID,
			CoverURL:     al.CoverURL,
			Source:       source,
			Status:       merge.StatusNeutral,
			Score:        score,
		})
	}
	return recs
}

func topNames(scored []scoring.ScoredArtist, n int) []string {
	names := make([]string, 0, n)
	for _, a := range scored {
		if len(names) == n {
			break
		}
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}
