package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tasks-cli/api"
)

func newExportCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all tasks to stdout as json or yaml",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := e.svc.Tasks()
			switch format {
			case "json":
				data, err := json.MarshalIndent(tasks, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(e.out, string(data))
			case "yaml", "yml":
				enc := yaml.NewEncoder(e.out)
				enc.SetIndent(2)
				if err := enc.Encode(tasks); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("%w: unknown export format %q (want json or yaml)", errUsage, format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	return cmd
}

func newServeCmd(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task list read-only over HTTP",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := api.NewHandler(e.svc, e.logger)
			_, _ = fmt.Fprintf(e.out, "Serving tasks on http://%s\n", addr)
			return api.Serve(ctx, addr, handler.Router(), e.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}
