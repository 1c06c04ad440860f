package main

import (
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cozmogo/cozmogo/internal/capability"
	"github.com/cozmogo/cozmogo/internal/dispatch"
	"github.com/cozmogo/cozmogo/internal/events"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the robot's action catalog",
	RunE:  runActions,
}

func runActions(cmd *cobra.Command, args []string) error {
	sim := capability.NewSim(events.NewLog())
	set, err := capability.NewSet(sim.Actions(), sim)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Action", "Parameters", "Timeout", "Description"})

	for _, spec := range set.Catalog().Specs() {
		params := make([]string, len(spec.Params))
		for i, p := range spec.Params {
			params[i] = p.Name + " " + string(p.Type)
		}
		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = dispatch.DefaultTimeout
		}
		tw.AppendRow(table.Row{
			spec.Name,
			strings.Join(params, ", "),
			timeout.Round(time.Second).String(),
			spec.Description,
		})
	}

	tw.Render()
	return nil
}
