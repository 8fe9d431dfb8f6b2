package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var loteLimit int

// consultarCmd represents the consultar command
var consultarCmd = &cobra.Command{
	Use:   "consultar <numero-processo> [numero-processo...]",
	Short: "Query case movements for one or more process numbers",
	Long: `Query the Projudi portal for the movement history of the given
process numbers and print the results as JSON.

A single number runs one query; multiple numbers run concurrently, each
with its own portal session. The process exits non-zero if any query
fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConsultar,
}

func init() {
	rootCmd.AddCommand(consultarCmd)

	consultarCmd.Flags().IntVar(&loteLimit, "concorrencia", 0, "max queries in flight for multiple numbers")
}

func runConsultar(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if len(args) == 1 {
		result := engine.Run(ctx, args[0])
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.OK() {
			return fmt.Errorf("query failed: %s (code %d)", result.Message, result.Code)
		}
		return nil
	}

	entries := engine.RunBatch(ctx, args, loteLimit)
	if err := enc.Encode(entries); err != nil {
		return err
	}

	failed := 0
	for _, entry := range entries {
		if !entry.Result.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(entries))
	}
	return nil
}
