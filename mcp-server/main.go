package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"jucket/appconfig"
	"jucket/autoskip"
	"jucket/config"
	"jucket/database"
	"jucket/dropzone"
	"jucket/logging"
	"jucket/playback"
	"jucket/spotify"
	"jucket/spotify/model"
	"jucket/storage"
)

// Player is the part of the Spotify client the tools drive.
type Player interface {
	playback.StateSource
	playback.Queuer
	Next(ctx context.Context) error
}

// Session state shared by the handlers. player is nil when no Spotify token
// is available; dislike tools keep working without it.
var (
	store    *database.DatabaseManager
	settings *config.Provider
	player   Player
	hub      *playback.Hub
	coord    *autoskip.Coordinator
	dropper  *dropzone.Handler
	logger   = zap.NewNop()
)

var errNotConnected = errors.New("spotify is not connected; run 'jucket login' first")

func main() {
	cfg, err := appconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol
	logger, err = logging.InitFileLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := storage.Open(cfg.StorageDir)
	if err != nil {
		logger.Fatal("Failed to open local storage", zap.Error(err))
	}
	settings = config.NewProvider(local, nil, logger)
	if changes, err := local.Watch(ctx, logger); err != nil {
		logger.Warn("Settings changes will not be picked up", zap.Error(err))
	} else {
		go settings.Watch(ctx, changes)
	}

	casePolicy := database.CaseInsensitive
	if cfg.CaseSensitiveSearch {
		casePolicy = database.CaseSensitive
	}
	store, err = database.NewDatabaseManager(cfg.DBPath, database.WithLogger(logger), database.WithCasePolicy(casePolicy))
	if err != nil {
		logger.Fatal("Failed to open dislike database", zap.Error(err))
	}
	defer store.Close()

	if cfg.HasSpotifyCredentials() {
		auth := spotify.NewAuthenticator(spotify.Credentials{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RedirectURL:  cfg.Spotify.RedirectURL,
			TokenPath:    cfg.Spotify.TokenPath,
		}, logger)
		// No interactive login over stdio
		client, err := auth.Connect(ctx, false, nil)
		if err != nil {
			logger.Warn("Spotify unavailable, player tools disabled", zap.Error(err))
		} else {
			defer client.Close()
			player = client
		}
	}

	hub = playback.NewHub()
	defer hub.Close()
	coord = autoskip.New(store, skipper{}, hub, settings, autoskip.WithLogger(logger))
	defer coord.Close()
	dropper = dropzone.NewHandler(queuer{}, logger)

	mcpServer := newServer()
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}

func newServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"jucket-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	nowPlayingTool := mcp.NewTool("now_playing",
		mcp.WithDescription("Show the track playing on the active Spotify device, its position and whether it is disliked"),
	)

	dislikeTool := mcp.NewTool("dislike_track",
		mcp.WithDescription("Mark a track as disliked so the player skips it. Without a uri the current track is marked."),
		mcp.WithString("uri",
			mcp.Description("Spotify track URI or open.spotify.com link. Defaults to the playing track."),
		),
		mcp.WithString("name",
			mcp.Description("Track name stored with the dislike, used by list_dislikes filtering"),
		),
	)

	undislikeTool := mcp.NewTool("undislike_track",
		mcp.WithDescription("Remove the dislike mark from a track. Without a uri the current track is unmarked."),
		mcp.WithString("uri",
			mcp.Description("Spotify track URI or open.spotify.com link. Defaults to the playing track."),
		),
	)

	listTool := mcp.NewTool("list_dislikes",
		mcp.WithDescription("List disliked tracks, oldest first, optionally filtered by name"),
		mcp.WithString("filter",
			mcp.Description("Substring of the track name"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number starting at 1 (default 1)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default 10)"),
		),
	)

	isDislikedTool := mcp.NewTool("is_disliked",
		mcp.WithDescription("Check whether a track is disliked"),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("Spotify track URI or open.spotify.com link"),
		),
	)

	dropTool := mcp.NewTool("queue_drop",
		mcp.WithDescription("Handle a Spotify link as if it was dropped on the queue: tracks are queued, albums, artists and playlists start playing"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Spotify URI or open.spotify.com link"),
		),
	)

	skipTool := mcp.NewTool("skip",
		mcp.WithDescription("Skip to the next track"),
	)

	mcpServer.AddTool(nowPlayingTool, nowPlayingHandler)
	mcpServer.AddTool(dislikeTool, dislikeHandler)
	mcpServer.AddTool(undislikeTool, undislikeHandler)
	mcpServer.AddTool(listTool, listDislikesHandler)
	mcpServer.AddTool(isDislikedTool, isDislikedHandler)
	mcpServer.AddTool(dropTool, dropHandler)
	mcpServer.AddTool(skipTool, skipHandler)

	configResource := mcp.NewResource(
		"jucket://config",
		"Player Settings",
		mcp.WithResourceDescription("Stored player settings and the resolved theme"),
		mcp.WithMIMEType("application/json"),
	)

	statsResource := mcp.NewResource(
		"jucket://dislikes/stats",
		"Dislike Statistics",
		mcp.WithResourceDescription("Dislike counts, schema version and database size"),
		mcp.WithMIMEType("application/json"),
	)

	mcpServer.AddResource(configResource, configHandler)
	mcpServer.AddResource(statsResource, statsHandler)

	return mcpServer
}

// skipper and queuer resolve the player at call time, so the coordinator
// and the drop handler can be built before a client exists.
type skipper struct{}

func (skipper) Next(ctx context.Context) error {
	if player == nil {
		return errNotConnected
	}
	return player.Next(ctx)
}

type queuer struct{}

func (queuer) AddToQueue(ctx context.Context, uri string) error {
	if player == nil {
		return errNotConnected
	}
	return player.AddToQueue(ctx, uri)
}

func (queuer) PlayContext(ctx context.Context, uri string) error {
	if player == nil {
		return errNotConnected
	}
	return player.PlayContext(ctx, uri)
}

// currentSnapshot reads the player state and publishes it, so the
// coordinator sees the same current track as the handler.
func currentSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if player == nil {
		return nil, errNotConnected
	}
	snap, err := player.CurrentState(ctx)
	if err != nil {
		return nil, err
	}
	hub.Publish(snap)
	return snap, nil
}

// resolveTrack returns the track named by the "uri" argument, or the
// playing track when it is absent.
func resolveTrack(ctx context.Context, request mcp.CallToolRequest) (database.Track, error) {
	raw := request.GetString("uri", "")
	name := request.GetString("name", "")

	snap, snapErr := currentSnapshot(ctx)

	if raw == "" {
		if snapErr != nil {
			return database.Track{}, snapErr
		}
		if snap.Current == nil {
			return database.Track{}, errors.New("nothing is playing")
		}
		if name == "" {
			name = snap.Current.Name
		}
		return database.Track{URI: snap.Current.URI, Name: name}, nil
	}

	u, err := spotify.ParseURI(raw)
	if err != nil {
		return database.Track{}, err
	}
	if !u.IsTrack() {
		return database.Track{}, spotify.ErrNotATrack
	}
	track := database.Track{URI: u.String(), Name: name}
	if track.Name == "" && snap.CurrentURI() == track.URI {
		track.Name = snap.Current.Name
	}
	return track, nil
}

func nowPlayingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := currentSnapshot(ctx)
	if err != nil {
		if errors.Is(err, spotify.ErrNoActiveDevice) {
			return mcp.NewToolResultText("No active Spotify device."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read player state: %v", err)), nil
	}

	disliked := false
	if snap.Current != nil {
		disliked, err = store.IsDisliked(ctx, database.Track{URI: snap.Current.URI})
		if err != nil {
			logger.Warn("Dislike lookup failed", zap.Error(err))
		}
	}

	result, err := json.MarshalIndent(spotify.NowPlaying(snap, disliked), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func dislikeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := resolveTrack(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid track: %v", err)), nil
	}

	if err := store.Set(ctx, database.KindTrack, track); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save dislike: %v", err)), nil
	}

	msg := fmt.Sprintf("Disliked %s", describe(track))
	if coord.OnDislikeToggled(ctx, track, true) {
		msg += " and skipped it"
	}
	return mcp.NewToolResultText(msg), nil
}

func undislikeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := resolveTrack(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid track: %v", err)), nil
	}

	if err := store.Unset(ctx, database.KindTrack, track.URI); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to remove dislike: %v", err)), nil
	}
	coord.OnDislikeToggled(ctx, track, false)

	return mcp.NewToolResultText(fmt.Sprintf("Removed dislike from %s", describe(track))), nil
}

// DislikeEntry is one row of list_dislikes.
type DislikeEntry struct {
	URI        string    `json:"uri"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	DislikedAt string    `json:"disliked"`
}

// DislikePage is the list_dislikes result.
type DislikePage struct {
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	More     bool           `json:"more"`
	Dislikes []DislikeEntry `json:"dislikes"`
}

func listDislikesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := request.GetString("filter", "")
	page := request.GetInt("page", 1)
	limit := request.GetInt("limit", database.DefaultFindLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = database.DefaultFindLimit
	}

	entities, err := store.Find(ctx, limit, page, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list dislikes: %v", err)), nil
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to count dislikes: %v", err)), nil
	}

	out := DislikePage{
		Total:    total,
		Page:     page,
		More:     database.HasMore(limit, page, total),
		Dislikes: make([]DislikeEntry, 0, len(entities)),
	}
	for _, e := range entities {
		out.Dislikes = append(out.Dislikes, DislikeEntry{
			URI:        e.URI,
			Name:       e.Name,
			CreatedAt:  e.CreatedAt,
			DislikedAt: humanize.Time(e.CreatedAt),
		})
	}

	result, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal dislikes: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func isDislikedHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid uri parameter: %v", err)), nil
	}
	u, err := spotify.ParseURI(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid uri parameter: %v", err)), nil
	}

	disliked, err := store.IsDisliked(ctx, database.Track{URI: u.String()})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}

	result, _ := json.Marshal(map[string]interface{}{"uri": u.String(), "disliked": disliked})
	return mcp.NewToolResultText(string(result)), nil
}

func dropHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid text parameter: %v", err)), nil
	}

	var contextURI string
	if snap, err := currentSnapshot(ctx); err == nil {
		contextURI = snap.Context.URI
	}

	res, err := dropper.Drop(ctx, text, contextURI)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Drop failed: %v", err)), nil
	}

	switch res.Action {
	case dropzone.Queued:
		return mcp.NewToolResultText(fmt.Sprintf("Added %s to the queue", res.URI)), nil
	case dropzone.ContextStarted:
		return mcp.NewToolResultText(fmt.Sprintf("Started playing %s", res.URI)), nil
	}
	if res.URI == "" {
		return mcp.NewToolResultText("Ignored: not a Spotify track, album, artist or playlist link."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ignored: %s is already playing", res.URI)), nil
}

func skipHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := (skipper{}).Next(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Skip failed: %v", err)), nil
	}
	return mcp.NewToolResultText("Skipped to the next track"), nil
}

// Resource handlers

func configHandler(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg := settings.Refresh()
	data, err := json.MarshalIndent(struct {
		config.Config
		ResolvedTheme config.Theme `json:"resolved_theme"`
	}{cfg, settings.Theme()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func statsHandler(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := store.GetStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	out := struct {
		*database.DatabaseStats
		Cache map[string]interface{} `json:"cache,omitempty"`
	}{DatabaseStats: stats}
	if p, ok := player.(cacheReporter); ok {
		out.Cache = p.CacheStats()
	}
	statsJSON, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(statsJSON),
		},
	}, nil
}

type cacheReporter interface {
	CacheStats() map[string]interface{}
}

func describe(track database.Track) string {
	if track.Name != "" {
		return fmt.Sprintf("'%s'", track.Name)
	}
	return track.URI
}
