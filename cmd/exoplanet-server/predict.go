package main

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/lightcurve"
)

var (
	predictCSV string
	predictSet map[string]string
)

type randSource struct{}

func (randSource) Float64() float64 { return rand.Float64() }

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")

	if predictCSV != "" {
		f, err := os.Open(predictCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		table, err := lightcurve.Parse(f)
		if err != nil {
			return err
		}
		if cfg.DemoMode() {
			return out.Encode(lightcurve.Demo(table.Rows, randSource{}))
		}
		resp, err := backend.NewClient(cfg.BackendURL).PredictLightCurve(ctx, table.Rows)
		if err != nil {
			return err
		}
		return out.Encode(resp)
	}

	if len(predictSet) == 0 {
		return errors.New("give --csv or at least one --set feature")
	}
	features, err := backend.ParseFeatureForm(predictSet)
	if err != nil {
		return err
	}
	for _, w := range backend.CheckFeatures(features) {
		cmd.PrintErrln("warning:", w)
	}
	if cfg.DemoMode() {
		return backend.ErrNotConfigured
	}
	resp, err := backend.NewClient(cfg.BackendURL).Predict(ctx, features)
	if err != nil {
		return err
	}
	return out.Encode(resp)
}

// runReset clears the session progress. The event history is kept.
func runReset(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openSQLite(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, closeStore, err := openSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.DeleteSession(ctx, cfg.SessionID); err != nil {
		return err
	}
	cmd.Printf("session %q reset\n", cfg.SessionID)
	return nil
}
