package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bizgram",
	Short: "BizGram API server",
	Long: `BizGram is the backend of a social network for the film and production trade.

Run without arguments to serve the API.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, the metrics endpoint and the job scheduler",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL tables and MongoDB indexes",
	RunE:  runMigrate,
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute the hot and trending scores of recent opinions once",
	RunE:  runRescore,
}

var autoMigrate bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&autoMigrate, "migrate", false, "Run migrations before serving")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rescoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
