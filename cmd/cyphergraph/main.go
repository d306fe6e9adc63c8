// Package main provides the cyphergraph CLI entry point.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyphergraph/cyphergraph/internal/cache"
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/catalogstore"
	"github.com/cyphergraph/cyphergraph/internal/compiler"
	"github.com/cyphergraph/cyphergraph/internal/config"
	"github.com/cyphergraph/cyphergraph/internal/obslog"
	"github.com/cyphergraph/cyphergraph/internal/telemetry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cyphergraph",
		Short: "cyphergraph - Cypher-to-SQL compiler for OLAP engines",
		Long: `cyphergraph compiles Cypher queries against a declared graph catalog
into SQL for an OLAP backend. It is a compiler, not a database: given a
catalog describing how nodes and relationships map onto tables, it turns
a Cypher query into the SQL that would run against those tables.`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newCatalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cyphergraph v%s (%s)\n", version, commit)
		},
	}
}

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog maintenance commands",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Load and validate a catalog document, reporting warnings",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogValidate,
	}
	catalogCmd.AddCommand(validateCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [path]",
		Short: "Validate a catalog document and persist it as the last-known-good snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogSnapshot,
	}
	snapshotCmd.Flags().String("store-dir", "./catalog-store", "Snapshot store directory")
	catalogCmd.AddCommand(snapshotCmd)

	return catalogCmd
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	result, err := catalog.LoadFromFile(cmd.Context(), args[0], nil, nil)
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}
	fmt.Printf("catalog valid: %d node label(s), %d relationship type(s)\n",
		len(result.Schema.Nodes), len(result.Schema.RelTypeIndex))
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func runCatalogSnapshot(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if _, err := catalog.LoadFromBytes(cmd.Context(), raw, nil, nil); err != nil {
		return fmt.Errorf("catalog invalid, refusing to snapshot: %w", err)
	}

	storeDir, _ := cmd.Flags().GetString("store-dir")
	store, err := catalogstore.Open(catalogstore.Options{DataDir: storeDir})
	if err != nil {
		return fmt.Errorf("opening catalog store: %w", err)
	}
	defer store.Close()

	if err := store.Save(raw); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	fmt.Printf("snapshot saved to %s\n", storeDir)
	return nil
}

func newCompileCmd() *cobra.Command {
	compileCmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile a Cypher query into SQL",
		Long: `Compile reads a catalog document and a Cypher query (as an argument, or
from stdin when no argument is given) and prints the compiled SQL, or the
query's full compile response as JSON when --json is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompile,
	}
	compileCmd.Flags().String("catalog", "./catalog.yaml", "Catalog document path")
	compileCmd.Flags().StringToString("param", nil, "Query parameter as name=value (repeatable)")
	compileCmd.Flags().StringToString("view-param", nil, "View parameter as name=value (repeatable)")
	compileCmd.Flags().Int("max-cte-depth", 0, "Override the configured max CTE depth for this query")
	compileCmd.Flags().Bool("json", false, "Print the full compile response as JSON")
	return compileCmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	result, err := catalog.LoadFromFile(cmd.Context(), catalogPath, nil, nil)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "catalog warning: %s\n", w)
	}

	queryText, err := queryTextFrom(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	log := obslog.New(os.Stderr, obslog.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	rec, err := telemetry.NewRecorder()
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	var qc *cache.QueryCache
	if cfg.Cache.Enabled {
		qc = cache.NewQueryCache(cfg.Cache.Size, cfg.Cache.TTL)
	}

	c := compiler.New(catalog.NewSchemaHandle(result.Schema), qc, cfg, log, rec)

	params, _ := cmd.Flags().GetStringToString("param")
	viewParams, _ := cmd.Flags().GetStringToString("view-param")
	maxCTEDepth, _ := cmd.Flags().GetInt("max-cte-depth")

	req := compiler.Request{
		QueryText:      queryText,
		Parameters:     stringMapToAny(params),
		ViewParameters: viewParams,
		MaxCTEDepth:    maxCTEDepth,
	}

	resp, err := c.Compile(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("compiling query: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.SQLText)
	for _, w := range resp.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}

func queryTextFrom(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading query from stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no query given: pass it as an argument or pipe it to stdin")
	}
	return string(data), nil
}

func stringMapToAny(m map[string]string) map[string]interface{} {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
