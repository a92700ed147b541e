package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-wlproxy/wlproxy/protocol"
	"github.com/go-wlproxy/wlproxy/simpleproxy"
)

var spawnArgs []string

var runCmd = &cobra.Command{
	Use:   "run [-- command args...]",
	Short: "Bind a relay socket and serve clients until interrupted",
	Long: `Binds a new wayland-N socket and relays every client to the
upstream compositor. With -- command..., also spawns command with
WAYLAND_DISPLAY set to the new socket, mirroring
original_source/wl-proxy/src/simple.rs's SimpleCommandExt, and exits
once that command does.`,
	RunE: runRelay,
}

func init() {
	runCmd.Flags().StringSliceVar(&spawnArgs, "spawn", nil, "command and arguments to run against the new socket (prefer '-- cmd args' over this flag)")
}

func runRelay(cmd *cobra.Command, args []string) error {
	proxy, err := simpleproxy.New(activeBaseline, log)
	if err != nil {
		return fmt.Errorf("could not start relay: %w", err)
	}
	defer proxy.Close()

	green := color.New(color.FgGreen, color.Bold)
	green.Printf("listening on %s\n", proxy.Display())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		proxy.Close()
	}()

	spawn := args
	if len(spawn) == 0 {
		spawn = spawnArgs
	}
	if len(spawn) > 0 {
		go runChild(proxy, spawn)
	}

	return proxy.Run(func() protocol.WlDisplayHandler { return nil })
}

// runChild spawns spawn[0] with spawn[1:] as arguments and
// WAYLAND_DISPLAY pointed at proxy, waits for it, logs a non-zero exit
// code or terminating signal, then tears the proxy down so Run
// returns. The child's exit status is not passed on: the relay exits
// with status 0 once Run returns, and a signal is not re-raised.
func runChild(proxy *simpleproxy.Proxy, spawn []string) {
	defer proxy.Close()

	c := exec.Command(spawn[0], spawn[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = append(os.Environ(), "WAYLAND_DISPLAY="+proxy.Display())

	if err := c.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				if status.Signaled() {
					log.Error().Str("signal", status.Signal().String()).Msg("child terminated by signal")
					return
				}
			}
			log.Error().Int("code", exitErr.ExitCode()).Msg("child exited non-zero")
			return
		}
		log.Error().Err(err).Msg("could not run child")
	}
}
