package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"diarscribe/internal/device"
	"diarscribe/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show external tools, directories and compute device readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := ctx.runtime.preflight(cfg)
			spec := tableSpec{headers: []string{"Check", "OK", "Detail"}}
			for _, r := range results {
				spec.rows = append(spec.rows, []string{r.Name, yesNo(r.Passed), r.Detail})
			}

			resolved, devErr := device.Resolve(cfg.Runtime.Device, ctx.runtime.probe)
			if devErr != nil {
				spec.rows = append(spec.rows, []string{"Compute device", yesNo(false), devErr.Error()})
			} else {
				spec.rows = append(spec.rows, []string{"Compute device", yesNo(true), fmt.Sprintf("%s (preference %s)", resolved, cfg.Runtime.Device)})
			}

			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}
			fmt.Fprintln(out, renderTable(spec))

			if failed := preflight.Failures(results); len(failed) > 0 || devErr != nil {
				fmt.Fprintln(out, "Some checks failed; see the details above.")
			} else {
				fmt.Fprintln(out, "Ready.")
			}
			return nil
		},
	}
}
