package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"jucket/appconfig"
	"jucket/autoskip"
	"jucket/config"
	"jucket/database"
	"jucket/dropzone"
	"jucket/logging"
	"jucket/playback"
	"jucket/spotify"
	"jucket/storage"
	"jucket/tui"
)

func usage() {
	fmt.Println("Usage: jucket [command] [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  tui                          - Start the player (default)")
	fmt.Println("  now-playing                  - Show the current track")
	fmt.Println("  dislike [uri] [name]         - Dislike a track (default: the current one)")
	fmt.Println("  undislike [uri]              - Remove a dislike (default: the current track)")
	fmt.Println("  dislikes [-page N] [filter]  - List disliked tracks")
	fmt.Println("  drop <link>                  - Queue a track or play an album, artist or playlist")
	fmt.Println("  config get [key]             - Show settings")
	fmt.Println("  config set <key> <value>     - Change a setting ('-' reads the value from stdin)")
	fmt.Println("  login                        - Authorize with Spotify")
	fmt.Println("\nConfiguration: $XDG_CONFIG_HOME/jucket/config.toml or JUCKET_* environment variables")
	fmt.Println("  JUCKET_SPOTIFY__CLIENT_ID, JUCKET_SPOTIFY__CLIENT_SECRET are required for playback")
}

func main() {
	command := "tui"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	if command == "help" || command == "-h" || command == "--help" {
		usage()
		return
	}

	a, err := openApp()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "tui":
		err = a.runTUI(ctx)
	case "now-playing", "status":
		err = a.nowPlaying(ctx)
	case "dislike":
		err = a.toggleDislike(ctx, args, true)
	case "undislike":
		err = a.toggleDislike(ctx, args, false)
	case "dislikes":
		err = a.listDislikes(ctx, args)
	case "drop":
		if len(args) < 1 {
			fmt.Println("Usage: jucket drop <spotify link or uri>")
			return
		}
		err = a.drop(ctx, strings.Join(args, " "))
	case "config":
		err = a.configCommand(args)
	case "login":
		err = a.login(ctx)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		usage()
		a.Close()
		os.Exit(2)
	}

	if err != nil {
		fmt.Println("Error:", err)
		a.Close()
		os.Exit(1)
	}
}

// app holds what every command opens.
type app struct {
	cfg      *appconfig.Config
	logger   *zap.Logger
	local    *storage.Storage
	settings *config.Provider
	store    *database.DatabaseManager
}

func openApp() (*app, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// The terminal belongs to the skin and the command output
	logger, err := logging.InitFileLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	local, err := storage.Open(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	casePolicy := database.CaseInsensitive
	if cfg.CaseSensitiveSearch {
		casePolicy = database.CaseSensitive
	}
	store, err := database.NewDatabaseManager(cfg.DBPath, database.WithLogger(logger), database.WithCasePolicy(casePolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to open dislike database: %w", err)
	}

	// The terminal background is queried once, before the skin owns the
	// terminal; later reloads reuse the answer.
	dark := lipgloss.HasDarkBackground()
	return &app{
		cfg:      cfg,
		logger:   logger,
		local:    local,
		settings: config.NewProvider(local, func() bool { return dark }, logger),
		store:    store,
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	a.logger.Sync()
}

func (a *app) authenticator() (*spotify.Authenticator, error) {
	if !a.cfg.HasSpotifyCredentials() {
		return nil, errors.New("spotify client id and secret are not configured (spotify.client_id / spotify.client_secret)")
	}
	return spotify.NewAuthenticator(spotify.Credentials{
		ClientID:     a.cfg.Spotify.ClientID,
		ClientSecret: a.cfg.Spotify.ClientSecret,
		RedirectURL:  a.cfg.Spotify.RedirectURL,
		TokenPath:    a.cfg.Spotify.TokenPath,
	}, a.logger), nil
}

func printAuthURL(authURL string) {
	fmt.Println("Log in to Spotify by visiting this page:")
	fmt.Println(" ", authURL)
}

// connect returns a Web API client. interactive allows the OAuth flow when
// auto_auth is set.
func (a *app) connect(ctx context.Context, interactive bool) (*spotify.Client, error) {
	auth, err := a.authenticator()
	if err != nil {
		return nil, err
	}
	client, err := auth.Connect(ctx, interactive && a.settings.Current().AutoAuth, printAuthURL)
	if errors.Is(err, spotify.ErrNotAuthenticated) {
		return nil, fmt.Errorf("%w: run 'jucket login' or enable auto_auth", err)
	}
	return client, err
}

func (a *app) login(ctx context.Context) error {
	auth, err := a.authenticator()
	if err != nil {
		return err
	}
	if _, err := auth.Login(ctx, a.settings.Current().AutoAuth, printAuthURL); err != nil {
		return err
	}
	fmt.Println("Logged in.")
	return nil
}

func (a *app) runTUI(ctx context.Context) error {
	client, err := a.connect(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("Failed to save token", zap.Error(err))
		}
	}()

	hub := playback.NewHub()
	defer hub.Close()
	poller := playback.NewPoller(client, hub, a.cfg.PollInterval, a.logger)
	notifier := tui.NewNotifier()

	coord := autoskip.New(a.store, client, hub, a.settings,
		autoskip.WithLogger(a.logger),
		autoskip.WithIndicator(notifier.Disliked),
	)
	defer coord.Close()

	defer a.settings.Subscribe(coord.ConfigListener())()
	defer a.settings.Subscribe(notifier.ConfigChanged)()

	if changes, err := a.local.Watch(ctx, a.logger); err != nil {
		a.logger.Warn("Settings changes from other windows will not be picked up", zap.Error(err))
	} else {
		go a.settings.Watch(ctx, changes)
	}

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)
	go coord.Watch(ctx, sub.Snapshots)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	go poller.Run(pollCtx)

	return tui.Run(ctx, tui.Options{
		Controller: client,
		Settings:   a.settings,
		Store:      a.store,
		Volume:     a.local,
		Dropper:    dropzone.NewHandler(client, a.logger),
		OnDislike:  coord,
		Refresh:    poller.Refresh,
		OpenURL:    browser.OpenURL,
		PageSize:   a.cfg.PageSize,
		Logger:     a.logger,
	}, hub, notifier)
}

func (a *app) nowPlaying(ctx context.Context) error {
	client, err := a.connect(ctx, false)
	if err != nil {
		return err
	}
	defer client.Close()

	snap, err := client.CurrentState(ctx)
	if err != nil {
		if errors.Is(err, spotify.ErrNoActiveDevice) {
			fmt.Println("Status: stopped")
			fmt.Println("Message: no active Spotify device")
			return nil
		}
		return fmt.Errorf("failed to get current status: %w", err)
	}

	disliked := false
	if snap.Current != nil {
		disliked, _ = a.store.IsDisliked(ctx, database.Track{URI: snap.Current.URI})
	}
	status := spotify.NowPlaying(snap, disliked)

	fmt.Printf("Status: %s\n", status.Status)
	if status.Track == nil {
		return nil
	}
	fmt.Printf("Track: %s\n", status.Display)
	fmt.Printf("Album: %s\n", status.Track.Album.Name)
	fmt.Printf("Position: %s / %s\n", status.Position, status.Duration)
	if status.Context.Description != "" {
		fmt.Printf("Playing from: %s\n", status.Context.Description)
	}
	fmt.Printf("URI: %s\n", status.Track.URI)
	if status.Disliked {
		fmt.Println("Disliked: yes")
	}
	return nil
}

// toggleDislike marks or unmarks the track named by args, or the playing
// track. Disliking the playing track skips it when skip_at_dislike is set.
func (a *app) toggleDislike(ctx context.Context, args []string, disliked bool) error {
	var (
		track  database.Track
		client *spotify.Client
		hub    = playback.NewHub()
	)
	defer hub.Close()

	if len(args) > 0 {
		u, err := spotify.ParseURI(args[0])
		if err != nil {
			return err
		}
		if !u.IsTrack() {
			return spotify.ErrNotATrack
		}
		track = database.Track{URI: u.String(), Name: strings.Join(args[1:], " ")}
	}

	needPlayer := track.URI == "" || (disliked && a.settings.Current().SkipAtDislike)
	if needPlayer {
		c, err := a.connect(ctx, false)
		if err != nil && track.URI == "" {
			return err
		}
		if err == nil {
			client = c
			defer client.Close()
			if snap, err := client.CurrentState(ctx); err == nil {
				hub.Publish(snap)
				if track.URI == "" && snap.Current != nil {
					track = database.Track{URI: snap.Current.URI, Name: snap.Current.Name}
				}
			} else if track.URI == "" {
				return err
			}
		}
	}
	if track.URI == "" {
		return errors.New("nothing is playing")
	}

	label := track.URI
	if track.Name != "" {
		label = fmt.Sprintf("'%s'", track.Name)
	}

	if !disliked {
		if err := a.store.Unset(ctx, database.KindTrack, track.URI); err != nil {
			return err
		}
		fmt.Printf("Removed dislike from %s\n", label)
		return nil
	}

	if err := a.store.Set(ctx, database.KindTrack, track); err != nil {
		return err
	}
	fmt.Printf("Disliked %s\n", label)

	if client != nil {
		coord := autoskip.New(a.store, client, hub, a.settings, autoskip.WithLogger(a.logger))
		defer coord.Close()
		if coord.OnDislikeToggled(ctx, track, true) {
			fmt.Println("Skipped to the next track")
		}
	}
	return nil
}

func (a *app) listDislikes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dislikes", flag.ContinueOnError)
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", a.cfg.PageSize, "Page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := strings.Join(fs.Args(), " ")

	entities, err := a.store.Find(ctx, *limit, *page, filter)
	if err != nil {
		return err
	}
	total, err := a.store.Count(ctx, filter)
	if err != nil {
		return err
	}

	if len(entities) == 0 {
		fmt.Println("No disliked tracks found.")
		return nil
	}
	for _, e := range entities {
		name := e.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %s  [%s]\n", name, e.URI, humanize.Time(e.CreatedAt))
	}
	if database.HasMore(*limit, *page, total) {
		shown := database.NewFindQueryBuilder(filter).WithPage(*limit, *page).Offset() + len(entities)
		fmt.Printf("\n%d of %d shown. Next: jucket dislikes -page %d %s\n", shown, total, *page+1, filter)
	}
	return nil
}

func (a *app) drop(ctx context.Context, text string) error {
	client, err := a.connect(ctx, false)
	if err != nil {
		return err
	}
	defer client.Close()

	var contextURI string
	if snap, err := client.CurrentState(ctx); err == nil {
		contextURI = snap.Context.URI
	}

	res, err := dropzone.NewHandler(client, a.logger).Drop(ctx, text, contextURI)
	if err != nil {
		return err
	}
	switch res.Action {
	case dropzone.Queued:
		fmt.Printf("Added %s to the queue\n", res.URI)
	case dropzone.ContextStarted:
		fmt.Printf("Playing %s\n", res.URI)
	default:
		if res.URI == "" {
			fmt.Println("Ignored: not a Spotify track, album, artist or playlist link")
		} else {
			fmt.Printf("Ignored: %s is already playing\n", res.URI)
		}
	}
	return nil
}

func (a *app) configCommand(args []string) error {
	if len(args) == 0 {
		args = []string{"get"}
	}

	cfg := a.settings.Current()
	switch args[0] {
	case "get":
		if len(args) > 1 {
			v, err := cfg.Get(args[1])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		fmt.Printf("Resolved theme: %s\n", a.settings.Theme())
		return nil

	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: jucket config set <key> <value> (keys: %s)", strings.Join(config.Keys, ", "))
		}
		value := strings.Join(args[2:], " ")
		if value == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}
			value = string(data)
		}
		if err := cfg.Set(args[1], value); err != nil {
			return err
		}
		if err := a.settings.Save(cfg); err != nil {
			return err
		}
		a.settings.Refresh()
		fmt.Printf("%s updated\n", args[1])
		return nil
	}

	return fmt.Errorf("unknown config command %q (use get or set)", args[0])
}
