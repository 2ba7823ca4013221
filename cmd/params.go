package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gridcast/internal/forecast"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the effective forecast tuning parameters as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := forecast.FromConfig(cfg.Forecast)
		out, err := yaml.Marshal(params)
		if err != nil {
			return eris.Wrap(err, "params: marshal")
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}
