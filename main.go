package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/llehouerou/cratedigger/internal/config"
	"github.com/llehouerou/cratedigger/internal/crate"
	"github.com/llehouerou/cratedigger/internal/imagecache"
	"github.com/llehouerou/cratedigger/internal/logging"
	"github.com/llehouerou/cratedigger/internal/provider"
	"github.com/llehouerou/cratedigger/internal/search"
	"github.com/llehouerou/cratedigger/internal/state"
)

const usage = `Usage: cratedigger <command> [arguments]

Commands:
  search <text> [-page N]     search all enabled providers for album artwork
  providers                   list providers and their status
  crate list                  show the crate in order
  crate add <text> <id>       search and add the result with the given id
  crate remove <id>           remove an entry and release its cached image
  crate move <from> <to>      move an entry to a new position (0-based)
  crate shuffle               shuffle the crate order
  crate clear                 empty the crate
  settings show               show effective provider settings
  settings enable <id>        enable a provider and persist the change
  settings disable <id>       disable a provider and persist the change
  settings set-key <id> <key> store an API key (lastfm, discogs, gemini)
`

type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	stateMgr *state.Manager
	settings config.Settings
	agg      *search.Aggregator
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if !cfg.HasLastFMKey() {
		log.Debug().Msg("no Last.fm API key configured; provider will return empty pages")
	}
	if !cfg.HasDiscogsToken() {
		log.Debug().Msg("no Discogs token configured; provider will return empty pages")
	}

	stateMgr, err := state.Open()
	if err != nil {
		return err
	}
	defer stateMgr.Close()

	// Persisted settings win over the config file; a fresh install
	// starts from the file.
	settings := cfg.Settings()
	if saved, err := stateMgr.GetSettings(); err != nil {
		log.Warn().Err(err).Msg("could not read saved settings")
	} else if saved != nil {
		settings = *saved
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		stateMgr: stateMgr,
		settings: settings,
		agg: search.NewDefault(log, search.Credentials{
			LastFMKey:    settings.APIKeys.LastFM,
			DiscogsToken: settings.APIKeys.Discogs,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "search":
		return a.runSearch(ctx, args[1:])
	case "providers":
		return a.runProviders()
	case "crate":
		return a.runCrate(ctx, args[1:])
	case "settings":
		return a.runSettings(args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	page := fs.Int("page", 1, "result page (1-based)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("search: missing search text")
	}

	results := a.agg.SearchAll(ctx, fs.Arg(0), *page, a.settings.EnabledProviders)
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tARTIST\tALBUM\tURL")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.ProviderID, r.Artist, r.Album, r.SourceURL)
	}
	return w.Flush()
}

func (a *app) runProviders() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tRATE LIMIT")
	for _, d := range a.agg.Descriptors() {
		enabled := d.DefaultEnabled
		if on, present := a.settings.EnabledProviders[d.ID]; present {
			enabled = on
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%d/%s\n",
			d.ID, d.DisplayName, enabled, d.RateLimit.MaxCalls, d.RateLimit.Interval)
	}
	return w.Flush()
}

func (a *app) runCrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("crate: missing subcommand")
	}

	store := crate.NewStore(a.stateMgr, imagecache.NewFetcher(), a.log)
	defer store.Close() //nolint:errcheck // Close only waits for background tasks

	store.Hydrate(ctx)

	switch args[0] {
	case "list":
		return a.crateList(store)
	case "add":
		return a.crateAdd(ctx, store, args[1:])
	case "remove":
		if len(args) != 2 {
			return errors.New("crate remove: expected <id>")
		}
		store.Remove(args[1])
		return nil
	case "move":
		if len(args) != 3 {
			return errors.New("crate move: expected <from> <to>")
		}
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("crate move: bad index %q", args[1])
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("crate move: bad index %q", args[2])
		}
		store.Reorder(from, to)
		return nil
	case "shuffle":
		store.Shuffle()
		return nil
	case "clear":
		store.Clear()
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown crate subcommand %q", args[0])
	}
}

func (a *app) crateList(store *crate.Store) error {
	albums := store.Albums()
	if len(albums) == 0 {
		fmt.Println("Crate is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tARTIST\tALBUM\tCACHED")
	for i, album := range albums {
		cached := "-"
		if album.LocalHandle != nil {
			cached = fmt.Sprintf("%d bytes", album.LocalHandle.Size())
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, album.ID, album.Artist, album.Album, cached)
	}
	return w.Flush()
}

func (a *app) runSettings(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("settings: missing subcommand")
	}
	if args[0] == "show" {
		return a.settingsShow()
	}

	updated, err := applySettingsChange(a.settings, args[0], args[1:])
	if err != nil {
		return err
	}
	if err := a.stateMgr.SaveSettings(updated); err != nil {
		return err
	}
	a.settings = updated
	return nil
}

func (a *app) settingsShow() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tENABLED\tKEY")
	for _, d := range a.agg.Descriptors() {
		enabled := d.DefaultEnabled
		if on, present := a.settings.EnabledProviders[d.ID]; present {
			enabled = on
		}
		key := "-"
		if d.RequiresKey {
			key = "missing"
			if providerKey(a.settings.APIKeys, d.ID) != "" {
				key = "set"
			}
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", d.ID, enabled, key)
	}
	return w.Flush()
}

// applySettingsChange returns a copy of s with one enable/disable/set-key
// edit applied. The input snapshot is never mutated.
func applySettingsChange(s config.Settings, verb string, args []string) (config.Settings, error) {
	enabled := make(map[string]bool, len(s.EnabledProviders)+1)
	for id, on := range s.EnabledProviders {
		enabled[id] = on
	}
	s.EnabledProviders = enabled

	switch verb {
	case "enable", "disable":
		if len(args) != 1 {
			return s, fmt.Errorf("settings %s: expected <provider-id>", verb)
		}
		s.EnabledProviders[args[0]] = verb == "enable"
	case "set-key":
		if len(args) != 2 {
			return s, errors.New("settings set-key: expected <id> <key>")
		}
		switch args[0] {
		case provider.IDLastFM:
			s.APIKeys.LastFM = args[1]
		case provider.IDDiscogs:
			s.APIKeys.Discogs = args[1]
		case "gemini":
			s.APIKeys.Gemini = args[1]
		default:
			return s, fmt.Errorf("settings set-key: unknown provider %q", args[0])
		}
	default:
		return s, fmt.Errorf("unknown settings subcommand %q", verb)
	}
	return s, nil
}

func providerKey(keys config.Keys, providerID string) string {
	switch providerID {
	case provider.IDLastFM:
		return keys.LastFM
	case provider.IDDiscogs:
		return keys.Discogs
	}
	return ""
}

func (a *app) crateAdd(ctx context.Context, store *crate.Store, args []string) error {
	if len(args) != 2 {
		return errors.New("crate add: expected <text> <id>")
	}
	text, id := args[0], args[1]

	for _, r := range a.agg.SearchAll(ctx, text, 1, a.settings.EnabledProviders) {
		if r.ID == id {
			store.Add(ctx, r)
			fmt.Printf("Added %s - %s (%s)\n", r.Artist, r.Album, r.ID)
			return nil
		}
	}
	return fmt.Errorf("crate add: no result with id %q for %q", id, text)
}
