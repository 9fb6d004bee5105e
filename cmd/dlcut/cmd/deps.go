package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dlcut/internal/deps"
)

var depsJSON bool

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Manage yt-dlp and ffmpeg",
}

var depsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the tools are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, cmdLogger())
		if err != nil {
			return err
		}

		st := a.checker.Status(cmd.Context())
		out := cmd.OutOrStdout()
		if depsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		for _, name := range []string{deps.YtDlp, deps.FFmpeg} {
			if v, ok := st.Versions[name]; ok {
				fmt.Fprintf(out, "%-8s %s (%s)\n", name, v, st.Paths[name])
			} else {
				fmt.Fprintf(out, "%-8s not installed\n", name)
			}
		}
		fmt.Fprintf(out, "bin dir  %s\n", a.resolver.BinDir())
		if !st.Ready {
			return fmt.Errorf("dependencies missing; run \"dlcut deps install\"")
		}
		return nil
	},
}

var depsInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download any missing tools into the bin dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, cmdLogger())
		if err != nil {
			return err
		}

		st, err := a.installer.Install(cmd.Context(), newTerminalSink(cmd.ErrOrStderr()))
		if err != nil {
			return cliError(err)
		}
		for _, name := range []string{deps.YtDlp, deps.FFmpeg} {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name, st.Paths[name])
		}
		return nil
	},
}

func init() {
	depsCheckCmd.Flags().BoolVar(&depsJSON, "json", false, "output status as JSON")
	depsCmd.AddCommand(depsCheckCmd, depsInstallCmd)
	rootCmd.AddCommand(depsCmd)
}
