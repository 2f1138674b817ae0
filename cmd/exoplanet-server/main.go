// Package main is the entry point for the Exoplanet Detective server.
// It only handles dependency injection and server initialization.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/config"
)

var (
	flagAddr    string
	flagStore   string
	flagDBPath  string
	flagBackend string
	flagSession string
	flagLogMode string
	flagDemo    bool
)

var rootCmd = &cobra.Command{
	Use:   "exoplanet-server",
	Short: "Exoplanet Detective API and Kids Mode server",
	Long: `Serves the exoplanet classification API, light-curve uploads and the
Kids Mode mystery game over REST and WebSocket.

Settings come from EXO_* environment variables; flags override them.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify one object or a light-curve CSV from the command line",
	Long: `Sends features (--set koi_period=9.48 ...) or a CSV (--csv curve.csv)
to the prediction backend and prints the result as JSON. In demo mode the CSV
is analysed locally.`,
	RunE: runPredict,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored Kids Mode session",
	RunE:  runReset,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAddr, "addr", "", "listen address (EXO_ADDR)")
	pf.StringVar(&flagStore, "store", "", "session store: sqlite or redis (EXO_STORE)")
	pf.StringVar(&flagDBPath, "db", "", "SQLite database path (EXO_DB_PATH)")
	pf.StringVar(&flagBackend, "backend", "", "prediction backend URL (EXO_BACKEND_URL)")
	pf.StringVar(&flagSession, "session", "", "Kids Mode session id (EXO_SESSION_ID)")
	pf.StringVar(&flagLogMode, "log-mode", "", "development or production (EXO_LOG_MODE)")
	pf.BoolVar(&flagDemo, "demo", false, "analyse uploads locally without a backend (EXO_DEMO)")

	predictCmd.Flags().StringVar(&predictCSV, "csv", "", "light-curve CSV file")
	predictCmd.Flags().StringToStringVar(&predictSet, "set", nil, "feature values, e.g. koi_period=9.48")

	rootCmd.AddCommand(serveCmd, predictCmd, resetCmd)
}

// loadConfig reads the environment and applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = flagAddr
	}
	if flags.Changed("store") {
		cfg.StoreBackend = flagStore
	}
	if flags.Changed("db") {
		cfg.DBPath = flagDBPath
	}
	if flags.Changed("backend") {
		cfg.BackendURL = flagBackend
	}
	if flags.Changed("session") {
		cfg.SessionID = flagSession
	}
	if flags.Changed("log-mode") {
		cfg.LogMode = flagLogMode
	}
	if flags.Changed("demo") {
		cfg.Demo = flagDemo
	}
	return cfg, cfg.Validate()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
