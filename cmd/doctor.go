package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"supermcp/internal/catalog"
	"supermcp/internal/config"
	"supermcp/internal/credentials"
	"supermcp/internal/handlers"
	"supermcp/internal/registry"
	"supermcp/internal/security"
)

var doctorConfigPaths []string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the configured packages without starting the router",
	Long: `Loads the configuration, reports any packages the loader had to skip,
probes every remaining package, and prints its current status and tool
catalog ETag.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringArrayVar(&doctorConfigPaths, "config", nil, "Root config file to load (repeatable); defaults to ./supermcp.config.json")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	rootPaths := doctorConfigPaths
	if len(rootPaths) == 0 {
		rootPaths = []string{"supermcp.config.json"}
	}

	merged, err := config.Load(rootPaths)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if len(merged.Skipped) > 0 {
		fmt.Fprintln(w, "SKIPPED PACKAGE\tREASON")
		for _, s := range merged.Skipped {
			fmt.Fprintf(w, "%s\t%s\n", s.ID, s.Reason)
		}
		fmt.Fprintln(w)
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

	reg := registry.New(merged, rootPaths, store, redirectURI, 0)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reg.CloseAll(closeCtx)
	}()

	cat := catalog.New()
	h := handlers.New(reg, cat, func() *security.Policy { return policy }, handlers.DefaultConfig())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := h.ListToolPackages(ctx, handlers.ListToolPackagesParams{IncludeHealthCheck: true})
	if err != nil {
		return fmt.Errorf("probing packages: %w", err)
	}

	fmt.Fprintln(w, "PACKAGE\tTRANSPORT\tSTATUS\tTOOLS\tLAST ERROR")
	for _, pkg := range result.Packages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", pkg.ID, pkg.Transport, pkg.Status, pkg.ToolCount, pkg.LastError)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ncatalog etag: %s\n", result.ETag)
	return nil
}
