package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/labelscore/internal/model"
)

var (
	extractProxy         string
	extractForceScrapfly bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract title, ingredients and supplement facts from a product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		svc, err := buildExtractService(cfg)
		if err != nil {
			return err
		}

		resp, err := svc.Extract(cmd.Context(), model.ExtractRequest{
			URL:           args[0],
			Proxy:         extractProxy,
			ForceScrapfly: extractForceScrapfly,
		})
		if resp != nil {
			if pErr := printJSON(cmd.OutOrStdout(), resp); pErr != nil {
				return pErr
			}
		}
		return err
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractProxy, "proxy", "", "firecrawl proxy mode for the first attempt (basic, stealth, auto)")
	extractCmd.Flags().BoolVar(&extractForceScrapfly, "force-scrapfly", false, "try the stealth scraper first")
	rootCmd.AddCommand(extractCmd)
}
