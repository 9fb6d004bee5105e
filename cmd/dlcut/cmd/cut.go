package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dlcut/internal/ffmpeg"
	"github.com/jmylchreest/dlcut/internal/service"
)

var cutCmd = &cobra.Command{
	Use:   "cut <input>",
	Short: "Cut a section out of a local video",
	Long: `Cut the section between --start and --end out of a local media file.

Timestamps accept SS, MM:SS or HH:MM:SS and are checked against the file's
duration. Stream copy is tried first; ffmpeg re-encodes if copying fails.
Without --output the clip is written next to the input as <name>_cut<ext>.`,
	Example: `  dlcut cut video.mp4 --start 1:00 --end 1:30 -o clip.mp4`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCut,
}

func init() {
	rootCmd.AddCommand(cutCmd)

	cutCmd.Flags().StringP("output", "o", "", "output file")
	cutCmd.Flags().String("start", "", "clip start (required)")
	cutCmd.Flags().String("end", "", "clip end (required)")
	_ = cutCmd.MarkFlagRequired("start")
	_ = cutCmd.MarkFlagRequired("end")
}

func runCut(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, cmdLogger())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	input := args[0]

	output, _ := cmd.Flags().GetString("output")
	startFlag, _ := cmd.Flags().GetString("start")
	endFlag, _ := cmd.Flags().GetString("end")

	total, err := a.downloads.ProbeDuration(ctx, input)
	if err != nil {
		return cliError(err)
	}
	start, end, err := service.ValidateTimestamps(&startFlag, &endFlag, total)
	if err != nil {
		return cliError(err)
	}

	if output == "" {
		output = defaultCutOutput(input)
	}

	h, err := a.downloads.StartCut(ctx, ffmpeg.CutRequest{
		Input:  input,
		Output: output,
		Start:  *start,
		End:    *end,
	}, newTerminalSink(cmd.ErrOrStderr()))
	if err != nil {
		return cliError(err)
	}

	path, err := waitForJob(ctx, a.downloads, h)
	if err != nil {
		return cliError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// defaultCutOutput places the clip beside input so relative outputs never
// land in the download directory by surprise.
func defaultCutOutput(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return base + "_cut" + ext
}
