package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/backend"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/infra"
)

// runCmd исполняет одно действие из JSON-файла (или stdin при "-")
// без запуска сервера. Удобно для отладки привязок.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <action.json>",
		Short: "Execute a single action from a JSON file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(args[0])
		},
	}
}

func runOnce(path string) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read action: %w", err)
	}

	act, err := action.Decode(data)
	if err != nil {
		return err
	}

	validator := action.NewValidator(cfg.Policy)
	driver, err := backend.Select(cfg.Backend.Preferred, logger)
	if err != nil {
		return err
	}

	exec := engine.New(cfg.Engine, validator, driver, logger, nil)
	exec.Start()
	defer exec.Shutdown(context.Background())

	// Однократный запуск — всегда синхронный
	res := exec.ExecuteMode(context.Background(), act, false).Wait()

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))

	if !res.Success {
		return fmt.Errorf("action failed: %s", res.Message)
	}
	return nil
}
