package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dlcut/internal/service"
	"github.com/jmylchreest/dlcut/internal/ytdlp"
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download a video or its audio",
	Long: `Download a YouTube video with yt-dlp.

Without --output the file is named after the video title and placed in the
download directory. --start and --end download only that section and accept
SS, MM:SS or HH:MM:SS.`,
	Example: `  dlcut download https://youtu.be/dQw4w9WgXcQ --quality 720
  dlcut download https://youtu.be/dQw4w9WgXcQ --audio --start 0:30 --end 1:30`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringP("output", "o", "", "output file (relative paths go to the download directory)")
	downloadCmd.Flags().StringP("quality", "q", "", "video height such as 720, or high, medium, low with --audio")
	downloadCmd.Flags().Bool("audio", false, "download audio only as mp3")
	downloadCmd.Flags().String("start", "", "section start")
	downloadCmd.Flags().String("end", "", "section end")
	downloadCmd.Flags().String("output-dir", "", "download directory")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Downloads.OutputDir = dir
	}
	a, err := newApp(cfg, cmdLogger())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	url := args[0]

	output, _ := cmd.Flags().GetString("output")
	quality, _ := cmd.Flags().GetString("quality")
	audio, _ := cmd.Flags().GetBool("audio")
	startFlag, _ := cmd.Flags().GetString("start")
	endFlag, _ := cmd.Flags().GetString("end")

	req := ytdlp.DownloadRequest{
		URL:        url,
		Quality:    quality,
		OutputPath: output,
	}
	if audio {
		req.Mode = ytdlp.ModeAudioOnly
	}

	if err := ytdlp.ValidateURL(url); err != nil {
		return cliError(err)
	}

	// Naming the file or checking a section needs the metadata.
	if req.OutputPath == "" || startFlag != "" || endFlag != "" {
		info, err := a.downloads.FetchInfo(ctx, url)
		if err != nil {
			return cliError(err)
		}
		req.Start, req.End, err = service.ValidateTimestamps(optional(startFlag), optional(endFlag), info.Duration)
		if err != nil {
			return cliError(err)
		}
		if req.OutputPath == "" {
			req.OutputPath = service.GenerateFilename(info.Title, downloadExtension(req.Mode))
		}
	}

	h, err := a.downloads.StartDownload(ctx, req, newTerminalSink(cmd.ErrOrStderr()))
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

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func downloadExtension(mode ytdlp.Mode) string {
	if mode == "" {
		mode = ytdlp.Mode(cfg.Downloads.DefaultMode)
	}
	return ytdlp.DownloadRequest{Mode: mode}.Extension()
}
