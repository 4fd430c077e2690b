package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scoreRemote bool

var scoreCmd = &cobra.Command{
	Use:   "score <url>",
	Short: "Extract and score one product URL",
	Long:  "Runs the client pipeline for one URL: cache lookup, extraction, facts selection, scoring and normalization. With --remote the hosted functions are invoked instead of in-process services.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := buildClient(ctx, cfg, scoreRemote)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreRemote, "remote", false, "invoke the hosted extract and score functions")
	rootCmd.AddCommand(scoreCmd)
}
