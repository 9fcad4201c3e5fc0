package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
	"supermcp/internal/credentials"
	"supermcp/internal/handlers"
	"supermcp/internal/mcpclient"
	"supermcp/internal/oauthprovider"
	"supermcp/internal/registry"
	"supermcp/internal/security"
	"supermcp/internal/server"
	"supermcp/pkg/logging"
)

// serveDebug enables verbose (debug-level) logging.
var serveDebug bool

// serveYolo clears the blocked-tools and blocked-packages denylists; the
// allowlists and user-disabled tools of the security policy still apply.
var serveYolo bool

// serveTransport selects stdio or http as the front-end MCP transport.
var serveTransport string

// serveAddr is the listen address used when serveTransport is "http".
var serveAddr string

// serveConfigPaths are the root config documents to load, in order.
var serveConfigPaths []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the supermcp router",
	Long: `Starts the supermcp router: loads the configured upstream packages,
connects to each of them once at startup to register its resources, and
exposes an aggregated MCP server over stdio or HTTP.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug-level logging")
	serveCmd.Flags().BoolVar(&serveYolo, "yolo", false, "Disable the blocked-tools denylist (use with caution)")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Front-end transport: stdio or http")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8585", "Listen address when --transport=http")
	serveCmd.Flags().StringArrayVar(&serveConfigPaths, "config", nil, "Root config file to load (repeatable); defaults to ./supermcp.config.json")
}

// runServe wires the whole router together: config, credential store,
// security policy, registry, catalog, handlers, and front-end server.
func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	applyEnvOverrides()

	rootPaths := serveConfigPaths
	if len(rootPaths) == 0 {
		rootPaths = []string{"supermcp.config.json"}
	}
	merged, err := config.Load(rootPaths)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	emitSkippedPackages(merged.Skipped)

	if serveYolo {
		merged.Security.BlockedTools = nil
		merged.Security.BlockedPackages = nil
	}

	policy, err := security.Compile(merged.Security, merged.UserDisabledToolsByServer)
	if err != nil {
		return fmt.Errorf("compiling security policy: %w", err)
	}

	credDir, err := credentials.DefaultDir()
	if err != nil {
		return fmt.Errorf("resolving credentials directory: %w", err)
	}
	store, err := credentials.NewStore(credDir)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	redirectURI, err := buildRedirectURI()
	if err != nil {
		return fmt.Errorf("choosing oauth callback port: %w", err)
	}

	idleThreshold := idleTimeoutFromEnv()
	reg := registry.New(merged, rootPaths, store, redirectURI, idleThreshold)
	reg.StartReaper()
	defer reg.StopReaper()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reg.CloseAll(closeCtx)
	}()

	cat := catalog.New()

	var currentPolicy atomic.Pointer[security.Policy]
	currentPolicy.Store(policy)
	policyFunc := func() *security.Policy { return currentPolicy.Load() }

	hcfg := handlers.DefaultConfig()
	if d := toolTimeoutFromEnv(); d > 0 {
		hcfg.ToolTimeout = d
	}
	if d := listToolsTimeoutFromEnv(); d > 0 {
		hcfg.ListToolsTimeout = d
	}

	h := handlers.New(reg, cat, policyFunc, hcfg)

	srv := server.New(h, server.Config{
		Transport: server.Transport(serveTransport),
		Addr:      serveAddr,
		Version:   GetVersion(),
	})

	watcher, err := config.NewWatcher(rootPaths, func(path string) {
		logging.Info("cmd", "config change detected at %s; reloading security policy", path)
		reloaded, loadErr := config.Load(rootPaths)
		if loadErr != nil {
			logging.Error("cmd", loadErr, "reloading config after change at %s", path)
			return
		}
		if serveYolo {
			reloaded.Security.BlockedTools = nil
			reloaded.Security.BlockedPackages = nil
		}
		newPolicy, compileErr := security.Compile(reloaded.Security, reloaded.UserDisabledToolsByServer)
		if compileErr != nil {
			logging.Error("cmd", compileErr, "recompiling security policy after change at %s", path)
			return
		}
		currentPolicy.Store(newPolicy)
	})
	if err != nil {
		logging.Warn("cmd", "config file watching disabled: %s", err)
	} else {
		defer watcher.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Serve(ctx)
}

// emitSkippedPackages writes the startup skipped-package report to stderr
// as a single line, so a supervising agent can parse it without scraping
// human-readable log output.
func emitSkippedPackages(skipped []config.SkippedPackage) {
	if len(skipped) == 0 {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"packages": skipped})
	if err != nil {
		return
	}
	fmt.Fprintf(os.Stderr, "SUPER_MCP_SKIPPED_PACKAGES:%s\n", payload)
}

// buildRedirectURI picks a free loopback port once at startup and builds
// the OAuth redirect URI every package's authorization flow registers
// against. The port is re-probed on every restart; nothing here compares
// it with a persisted client registration (credentials.CheckAndInvalidateOnPortMismatch
// exists but is not called on this path).
func buildRedirectURI() (string, error) {
	port, err := oauthprovider.FindFreePort(0, 0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d/oauth/callback", oauthprovider.CallbackHost, port), nil
}

func applyEnvOverrides() {
	if d, ok := durationFromMS("SUPER_MCP_CONNECT_TIMEOUT_MS"); ok {
		mcpclient.SetDefaultConnectTimeout(d)
	}

	branding := oauthprovider.Branding{
		AppName:      os.Getenv("SUPER_MCP_APP_NAME"),
		PrimaryColor: os.Getenv("SUPER_MCP_PRIMARY_COLOR"),
		DeepLinkURL:  os.Getenv("SUPER_MCP_DEEP_LINK_URL"),
		IconURL:      os.Getenv("SUPER_MCP_ICON_URL"),
	}
	if v := os.Getenv("SUPER_MCP_COUNTDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			branding.CountdownSeconds = n
		}
	}
	oauthprovider.SetBranding(branding)
}

func toolTimeoutFromEnv() time.Duration {
	if v := os.Getenv("SUPER_MCP_TOOL_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 0
}

func listToolsTimeoutFromEnv() time.Duration {
	if d, ok := durationFromMS("SUPER_MCP_LIST_TOOLS_TIMEOUT_MS"); ok {
		return d
	}
	if v := os.Getenv("SUPER_MCP_LIST_TOOLS_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 0
}

// idleTimeoutFromEnv reads SUPER_MCP_IDLE_TIMEOUT_MS; 0 (the documented
// default-disables value) turns the reaper off entirely.
func idleTimeoutFromEnv() time.Duration {
	v, ok := os.LookupEnv("SUPER_MCP_IDLE_TIMEOUT_MS")
	if !ok {
		return 300 * time.Second
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func durationFromMS(envVar string) (time.Duration, bool) {
	v := os.Getenv(envVar)
	if v == "" {
		return 0, false
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
