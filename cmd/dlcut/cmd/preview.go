package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Serve a local file for playback",
	Long: `Serve a local media file on a loopback port with byte-range support so a
player can seek through it. The URL is printed and the server runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, cmdLogger())
		if err != nil {
			return err
		}

		p, err := a.previews.Start(args[0])
		if err != nil {
			return cliError(err)
		}
		defer a.previews.Close()

		fmt.Fprintln(cmd.OutOrStdout(), p.URL)
		a.logger.Info("serving preview", slog.String("url", p.URL), slog.String("path", p.Path))

		<-cmd.Context().Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
