package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"corrguessr-backend/internal/logging"
	"corrguessr-backend/internal/services"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "corrguessr",
		Short: "Guess the correlation of random scatter plots",
		Long: `corrguessr shows a scatter plot of a random sample and asks for its
Pearson correlation coefficient. Five rounds, lowest total error wins.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Random seed (0 picks one)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (default $LOG_LEVEL or info)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newPlayCmd(),
		newSampleCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "corrguessr version %s\n", version)
			}
		},
	}
}

func generatorFromFlags(cmd *cobra.Command) *services.Generator {
	seed, _ := cmd.Flags().GetUint64("seed")
	if seed == 0 {
		return services.NewGenerator(nil)
	}
	return services.NewSeededGenerator(seed)
}

func loggerFromFlags(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	return logging.NewLogger(level, false, cmd.ErrOrStderr())
}
