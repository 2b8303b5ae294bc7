package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ltavares/courier/internal/app"
	"github.com/ltavares/courier/internal/config"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.courier/config.toml)")
	userFlag := flag.String("username", "", "username (overrides config)")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	if _, err := os.Stat(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: no config at %s; write one first, e.g.:\n\n", configPath)
		fmt.Fprintf(os.Stderr, "  api_base_url = \"http://localhost:8000/api\"\n  username = \"ada\"\n  auth_token = \"...\"\n")
		os.Exit(1)
	}

	// fx logs would fight the TUI for the terminal.
	fxApp := fx.New(
		app.Module(app.Params{ConfigPath: configPath, Username: *userFlag}),
		fx.NopLogger,
	)

	fxApp.Run()
}
