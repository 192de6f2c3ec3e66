// Command gridworld serves grid worlds where entities occupy cells and
// creatures search for a route to stand next to a target.
//
// It supports four commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate" – checks every layout in a directory and reports reachability
//  4. "path" – runs a single path search against a layout and prints the route
//
// Settings come from a TOML file, GRIDWORLD_* environment variables (a .env
// file is honoured), and flags, in increasing order of precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/gridworld/api"
	"github.com/wricardo/gridworld/game/config"
	"github.com/wricardo/gridworld/game/engine"
	"github.com/wricardo/gridworld/game/service"
	"github.com/wricardo/gridworld/game/session"
	"github.com/wricardo/gridworld/transport/mcp"
	"github.com/wricardo/gridworld/transport/websocket"
	"github.com/wricardo/gridworld/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid World Server"
)

const (
	defaultSettingsFile = "gridworld.toml"
	shutdownTimeout     = 10 * time.Second
	probeTimeout        = 2 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flags on the root command apply to every
// subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "gridworld",
		Usage:   AppName,
		Version: Version,
		Flags:   rootFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run HTTP server with API, WebSocket, and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel"},
					&cli.BoolFlag{Name: "watch", Usage: "reload layouts when their files change"},
				},
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp"},
				Usage:   "run MCP stdio server, starting an internal HTTP API when none is reachable",
				Action:  runMCP,
			},
			{
				Name:      "validate",
				Usage:     "check the layouts in a directory",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
			{
				Name:  "path",
				Usage: "search a route next to a target cell in a layout",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "layout", Aliases: []string{"l"}, Usage: "layout id (default layout when empty)"},
					&cli.StringFlag{Name: "from", Usage: "start cell as x,y", Required: true},
					&cli.StringFlag{Name: "to", Usage: "target cell as x,y", Required: true},
				},
				Action: runPath,
			},
		},
	}
}

// rootFlags are shared by every command
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   defaultSettingsFile,
			Usage:   "settings file (TOML), skipped when missing",
			Sources: cli.EnvVars("GRIDWORLD_CONFIG"),
		},
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "layouts", Usage: "directory containing world layouts"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
}

// loadSettings layers the settings file, environment, and flags
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if cmd.IsSet("host") {
		settings.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("layouts") {
		settings.World.LayoutsDir = cmd.String("layouts")
	}
	if cmd.IsSet("log-level") {
		settings.Logging.Level = cmd.String("log-level")
	}
	if cmd.IsSet("ngrok") {
		settings.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("watch") {
		settings.World.Watch = cmd.Bool("watch")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// services holds the wired managers behind the world service
type services struct {
	configs  *config.Manager
	sessions *session.Manager
	world    service.WorldService
}

// newServices wires layout and session managers into the world service
func newServices(settings *config.Settings, logger *zap.Logger) (*services, error) {
	configs, err := config.NewManager(settings.World.LayoutsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if err := configs.SetDefault(settings.World.DefaultLayout); err != nil {
		logger.Warn("default layout unavailable, keeping fallback",
			zap.String("layout", settings.World.DefaultLayout),
			zap.Error(err))
	}

	sessions := session.NewManager(
		session.WithLogger(logger),
		session.WithSearchBudget(settings.World.SearchBudget),
	)

	return &services{
		configs:  configs,
		sessions: sessions,
		world:    service.NewWorldService(sessions, configs, logger),
	}, nil
}

// newHandler mounts the REST API at the root and the MCP endpoint at /mcp.
// The MCP tools call back into the API at baseURL.
func newHandler(world service.WorldService, hub *websocket.Hub, baseURL string, logger *zap.Logger) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(world, hub, logger))
	mainRouter.Handle("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// setup loads settings and builds the logger for long-running commands
func setup(cmd *cli.Command) (*config.Settings, *zap.Logger, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(settings.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return settings, logger, nil
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
// If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	settings, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	svcs, err := newServices(settings, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	if settings.World.Watch {
		err := svcs.configs.Watch(ctx, logger, func(id string) {
			logger.Info("layout changed", zap.String("layout", id))
		})
		if err != nil {
			logger.Warn("layout watcher disabled", zap.Error(err))
		}
	}

	go svcs.sessions.RunCleanup(ctx, settings.Session.CleanupInterval, settings.Session.TTL)

	addr := settings.Server.Addr()
	handler := newHandler(svcs.world, hub, settings.Server.BaseURL(), logger)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("http server listening",
			zap.String("addr", addr),
			zap.String("api", settings.Server.BaseURL()+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", settings.Server.BaseURL()+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, settings.Ngrok, handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		logger.Error("http server failed", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http server shutdown error", zap.Error(shutdownErr))
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done
func serveNgrok(ctx context.Context, settings config.NgrokSettings, handler http.Handler, logger *zap.Logger) {
	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if settings.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Domain))
		logger.Info("using custom ngrok domain", zap.String("domain", settings.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runMCP runs an MCP stdio server.
// It reuses the API at the configured address when it answers; otherwise it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	settings, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := settings.Server.BaseURL()
	logger.Info("checking for external API server", zap.String("url", baseURL))

	if probeAPI(ctx, baseURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", baseURL))
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		svcs, err := newServices(settings, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		hub := websocket.NewHub(logger)
		go hub.Run(ctx)

		internal, err := startInternalAPI(svcs.world, hub, logger)
		if err != nil {
			return err
		}
		defer internal.Close()

		baseURL = "http://" + internal.Addr
		go svcs.sessions.RunCleanup(ctx, settings.Session.CleanupInterval, settings.Session.TTL)
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// probeAPI reports whether a world API answers at baseURL
func probeAPI(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port.
// The returned server's Addr holds the bound address.
func startInternalAPI(world service.WorldService, hub *websocket.Hub, logger *zap.Logger) (*http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to get available port: %w", err)
	}

	httpServer := &http.Server{
		Addr:    listener.Addr().String(),
		Handler: api.NewServer(world, hub, logger),
	}
	logger.Info("starting internal HTTP server for MCP stdio", zap.String("addr", httpServer.Addr))

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()

	return httpServer, nil
}

// runValidate checks the layouts in the directory argument, or in the
// configured layouts directory when none is given
func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		dir = settings.World.LayoutsDir
	}

	results, err := validate.Dir(dir)
	if err != nil {
		return fmt.Errorf("validate %s: %w", dir, err)
	}
	if !validate.Report(output(cmd), results) {
		return fmt.Errorf("validate %s: some layouts have errors", dir)
	}
	return nil
}

// runPath searches once and prints the route over the rendered world
func runPath(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	from, err := engine.ParseCoordinate(cmd.String("from"))
	if err != nil {
		return err
	}
	to, err := engine.ParseCoordinate(cmd.String("to"))
	if err != nil {
		return err
	}

	configs, err := config.NewManager(settings.World.LayoutsDir)
	if err != nil {
		return err
	}
	layout := cmd.String("layout")
	if layout == "" {
		layout = settings.World.DefaultLayout
	}
	layoutConfig, err := configs.LoadConfig(layout)
	if err != nil {
		return err
	}

	sessions := session.NewManager(session.WithSearchBudget(settings.World.SearchBudget))
	sess, err := sessions.Create("", layoutConfig)
	if err != nil {
		return err
	}

	path, err := sess.World.SearchPath(from, to)
	if err != nil {
		return fmt.Errorf("search %s -> %s: %w", from, to, err)
	}

	out := output(cmd)
	fmt.Fprintf(out, "%s: %d steps from %s, ends at %s\n",
		layoutConfig.Name, len(path)-1, from, path[len(path)-1])
	fmt.Fprintln(out, engine.FormatRows(engine.RenderPath(sess.World.Render(), path, to)))
	return nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
