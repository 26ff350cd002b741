// Command raceroom starts the multiplayer race room server.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server exposing the websocket gateway, the REST API and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "configs" – lists the race presets found in the config directory
//
// Flags control host/port, config directory and preset, room expiry, debug
// logging, and optional ngrok tunneling for easy external access during
// development. Every flag can also be set through the environment or a .env
// file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/raceroom/api"
	"github.com/wricardo/mcp-training/raceroom/game/config"
	"github.com/wricardo/mcp-training/raceroom/game/registry"
	"github.com/wricardo/mcp-training/raceroom/game/service"
	"github.com/wricardo/mcp-training/raceroom/transport/mcp"
	"github.com/wricardo/mcp-training/raceroom/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Race Room Server"
)

var log = logrus.WithField("component", "main")

// main loads .env, parses the command line and runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("Error loading .env file")
		}
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
}

// newCommand builds the command tree. Root flags are visible to every
// subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "raceroom",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing race presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "preset",
				Usage:   "Race preset for new rooms (default: classic, or the first valid preset)",
				Sources: cli.EnvVars("RACE_PRESET"),
			},
			&cli.DurationFlag{
				Name:    "room-timeout",
				Value:   websocket.DefaultRoomTimeout,
				Usage:   "Rooms older than this are removed",
				Sources: cli.EnvVars("ROOM_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Value:   websocket.DefaultSweepInterval,
				Usage:   "How often expired rooms are swept",
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Value:   "static",
				Usage:   "Directory with the game client (skipped when missing)",
				Sources: cli.EnvVars("STATIC_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run the HTTP server with websocket gateway, REST API and MCP endpoint",
				Action:  runServe,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run an MCP stdio server backed by the REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "External API server to proxy; an internal one is started when unreachable",
						Sources: cli.EnvVars("API_URL"),
					},
				},
				Action: runStdioMCP,
			},
			{
				Name:   "configs",
				Usage:  "List the race presets in the config directory",
				Action: runListConfigs,
			},
		},
	}
}

// setupLogging configures the global logrus logger
func setupLogging(debug bool) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetReportCaller(false)
	}
}

// services holds the wired application components
type services struct {
	configs  *config.Manager
	registry *registry.Registry
	hub      *websocket.Hub
	lobby    service.LobbyService
}

// servicesOptions carries the settings initializeServices needs
type servicesOptions struct {
	ConfigDir     string
	Preset        string
	RoomTimeout   time.Duration
	SweepInterval time.Duration
}

func optionsFromCommand(cmd *cli.Command) servicesOptions {
	return servicesOptions{
		ConfigDir:     cmd.String("config-dir"),
		Preset:        cmd.String("preset"),
		RoomTimeout:   cmd.Duration("room-timeout"),
		SweepInterval: cmd.Duration("sweep-interval"),
	}
}

// initializeServices wires the preset manager, room registry, websocket hub
// and lobby service. The hub is not started.
func initializeServices(opts servicesOptions) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if opts.Preset != "" {
		if err := configManager.SetDefault(opts.Preset); err != nil {
			return nil, fmt.Errorf("failed to select preset %q: %w", opts.Preset, err)
		}
	}

	preset := configManager.GetDefault()
	reg := registry.New(preset.Settings())

	var hubOpts []websocket.Option
	if opts.RoomTimeout > 0 {
		hubOpts = append(hubOpts, websocket.WithRoomTimeout(opts.RoomTimeout))
	}
	if opts.SweepInterval > 0 {
		hubOpts = append(hubOpts, websocket.WithSweepInterval(opts.SweepInterval))
	}
	hub := websocket.NewHub(reg, hubOpts...)

	log.WithFields(logrus.Fields{
		"preset":   preset.Name,
		"capacity": preset.Capacity,
	}).Info("Race preset loaded")

	return &services{
		configs:  configManager,
		registry: reg,
		hub:      hub,
		lobby:    service.NewLobbyService(reg, configManager, hub),
	}, nil
}

// newRouter combines the REST API, the websocket gateway, the /mcp endpoint
// and the static game client into one handler.
func newRouter(svc *services, staticDir, mcpBaseURL string) http.Handler {
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err != nil {
			log.WithField("static_dir", staticDir).Debug("Static directory not found, not serving files")
			staticDir = ""
		}
	}

	apiServer := api.NewServer(svc.lobby, svc.hub, staticDir)
	if mcpBaseURL != "" {
		apiServer.Router().Handle("/mcp", mcpHandler(mcp.NewClient(mcpBaseURL)))
	}
	apiServer.MountStatic()
	return apiServer
}

// mcpHandler serves JSON-RPC MCP requests over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServe starts the HTTP server with the websocket hub, REST API and an
// /mcp proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	svc, err := initializeServices(optionsFromCommand(cmd))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.hub.Run(ctx)
	}()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := newRouter(svc, cmd.String("static-dir"), fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(logrus.Fields{
			"addr":      addr,
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("Server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends
func runNgrokTunnel(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.WithField("domain", domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("Ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.WithError(err).Error("Ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when
// reachable; otherwise it starts the full server on a random loopback port
// and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := cmd.String("api-url")
	baseURL := externalURL

	log.Infof("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		internalURL, shutdown, err := startInternalServer(ctx, optionsFromCommand(cmd))
		if err != nil {
			return err
		}
		defer shutdown()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	log.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// startInternalServer runs the full server on 127.0.0.1 with a random port
func startInternalServer(ctx context.Context, opts servicesOptions) (string, func(), error) {
	svc, err := initializeServices(opts)
	if err != nil {
		return "", nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := fmt.Sprintf("http://%s", listener.Addr().String())

	ctx, cancel := context.WithCancel(ctx)
	go svc.hub.Run(ctx)

	httpServer := &http.Server{
		Handler: newRouter(svc, "", ""),
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Internal HTTP server error")
		}
	}()

	log.Infof("Internal HTTP server on %s for MCP stdio", internalURL)

	shutdown := func() {
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}
	return internalURL, shutdown, nil
}

// runListConfigs prints the valid presets in the config directory
func runListConfigs(ctx context.Context, cmd *cli.Command) error {
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	configs, err := configManager.ListConfigs()
	if err != nil {
		return err
	}

	return printConfigs(os.Stdout, configs, configManager.GetDefault().Name)
}

func printConfigs(w io.Writer, configs []*service.ConfigInfo, defaultName string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCAPACITY\tDESCRIPTION")
	for _, c := range configs {
		name := c.Name
		if c.Name == defaultName {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ConfigID, name, c.Capacity, c.Description)
	}
	return tw.Flush()
}
