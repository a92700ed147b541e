package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/go-wlproxy/wlproxy/baseline"
	"github.com/go-wlproxy/wlproxy/wlconfig"
	"github.com/go-wlproxy/wlproxy/wllog"
)

var (
	debugFlag      bool
	logPrefixFlag  string
	baselineFile   string
	activeBaseline baseline.Baseline
	log            zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wlproxy-relay",
	Short: "Relay Wayland clients through a transparent proxy",
	Long: `wlproxy-relay binds a new wayland-N socket and relays every
connecting client to the compositor this process itself would connect
to (resolved from WAYLAND_DISPLAY/WAYLAND_SOCKET), demonstrating this
module's wlstate and simpleproxy packages end to end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = wlconfig.LoadDotenv(".env")
		debug := debugFlag || wlconfig.DebugEnabled()
		log = wllog.NewWithOptions(debug, logPrefixFlag)

		if baselineFile != "" {
			b, err := baseline.LoadFile(baselineFile)
			if err != nil {
				return err
			}
			activeBaseline = b
		} else {
			activeBaseline = baseline.ALLOfThem
		}
		return nil
	},
}

// Execute runs the root command, exiting the process on error the way
// the original's `exit()`-on-child-exit convention does.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable wire trace logging (same effect as WL_PROXY_DEBUG=1)")
	rootCmd.PersistentFlags().StringVar(&logPrefixFlag, "log-prefix", "", "prefix attached to every log line (same effect as WL_PROXY_PREFIX)")
	rootCmd.PersistentFlags().StringVar(&baselineFile, "baseline", "", "path to a YAML baseline override (default: every supported interface at its highest version)")

	rootCmd.AddCommand(runCmd)
}
