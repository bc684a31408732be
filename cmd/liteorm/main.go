package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zzguang83325/liteorm"
)

var (
	dbPath      string
	tables      string
	ifNotExists bool
	outPath     string
	structName  string
	pkgName     string
)

var rootCmd = &cobra.Command{
	Use:   "liteorm",
	Short: "Schema tooling for liteorm-managed SQLite databases",
	Long: `liteorm reads the schema of a SQLite database and turns it back into
CREATE TABLE statements or Go model structs that round-trip through the
liteorm mapping engine.`,
}

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print CREATE TABLE statements for the database's tables",
	RunE:  runDDL,
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Generate Go model structs from the database's tables",
	RunE:  runModel,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file path (required)")
	rootCmd.PersistentFlags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, default: all)")

	ddlCmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "Emit CREATE TABLE IF NOT EXISTS")

	modelCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output directory or .go file (default: stdout)")
	modelCmd.Flags().StringVar(&structName, "struct", "", "Struct name (single table only, default: derived from table name)")
	modelCmd.Flags().StringVar(&pkgName, "package", "models", "Package name for stdout output")

	rootCmd.AddCommand(ddlCmd)
	rootCmd.AddCommand(modelCmd)
}

// selectTables resolves the --tables flag against the store's schema.
func selectTables(ctx context.Context, store *liteorm.Store) ([]*liteorm.Table, error) {
	if tables == "" {
		return liteorm.ReadSchema(ctx, store)
	}

	var selected []*liteorm.Table
	for _, name := range strings.Split(tables, ",") {
		table, err := liteorm.ReadTable(ctx, store, strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		selected = append(selected, table)
	}
	return selected, nil
}

func openStore() (*liteorm.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("--db must be specified")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("cannot open database '%s': %w", dbPath, err)
	}
	return liteorm.Open(dbPath)
}

func runDDL(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	schema, err := selectTables(ctx, store)
	if err != nil {
		return err
	}

	for _, table := range schema {
		stmt, err := table.CreateSQL(ifNotExists)
		if err != nil {
			return err
		}
		fmt.Printf("%s;\n\n", stmt.SQL)
	}
	return nil
}

func runModel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	schema, err := selectTables(ctx, store)
	if err != nil {
		return err
	}

	if structName != "" && len(schema) > 1 {
		return fmt.Errorf("--struct requires a single table (use --tables)")
	}

	for _, table := range schema {
		if outPath == "" {
			source, err := liteorm.ModelSource(table, pkgName, structName)
			if err != nil {
				return err
			}
			fmt.Println(source)
			continue
		}
		if err := liteorm.GenerateModel(table, outPath, structName); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
