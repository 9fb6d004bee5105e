package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dlcut/pkg/format"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Show video metadata",
	Long:  "Fetch a YouTube video's title, duration and available qualities without downloading it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output metadata as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, cmdLogger())
	if err != nil {
		return err
	}

	info, err := a.downloads.FetchInfo(cmd.Context(), args[0])
	if err != nil {
		return cliError(err)
	}

	out := cmd.OutOrStdout()
	if infoJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "Title:    %s\n", info.Title)
	if info.Uploader != "" {
		fmt.Fprintf(out, "Uploader: %s\n", info.Uploader)
	}
	fmt.Fprintf(out, "Duration: %s\n", format.Clock(info.Duration))
	fmt.Fprintln(out, "Video qualities:")
	for _, q := range info.VideoQualities {
		if q.FilesizeApprox != "" {
			fmt.Fprintf(out, "  %-6d %s (~%s)\n", q.Height, q.Label, q.FilesizeApprox)
		} else {
			fmt.Fprintf(out, "  %-6d %s\n", q.Height, q.Label)
		}
	}
	fmt.Fprintln(out, "Audio qualities:")
	for _, q := range info.AudioQualities {
		fmt.Fprintf(out, "  %-6s %s\n", q.QualityID, q.Label)
	}
	return nil
}
