package cmd

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"memslink/internal/ecu"
	"memslink/internal/logger"
)

const version = "1.1.0"

var rootCmd = &cobra.Command{
	Use:          "memslink",
	Short:        "Diagnostic link for the Rover MEMS 1.6 ECU",
	Long:         "memslink talks the MEMS 1.6 command/echo serial protocol: telemetry, actuator tests and idle air control positioning.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool(flagDebug)
		verbose, _ := cmd.Flags().GetBool(flagVerbose)
		logger.Init(debug, verbose)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

const (
	flagPort       = "port"
	flagGeneration = "generation"
	flagDemo       = "demo"
	flagDebug      = "debug"
	flagVerbose    = "verbose"
	flagConfig     = "config"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "/dev/ttyUSB0", "serial device of the ECU link")
	pf.StringP(flagGeneration, "g", "dual-frame", "protocol generation: dual-frame or single-frame")
	pf.Bool(flagDemo, false, "use a simulated ECU instead of a serial port")
	pf.BoolP(flagDebug, "d", false, "debug logging")
	pf.BoolP(flagVerbose, "v", false, "verbose logging")
}

// connect opens the link per the persistent flags and runs the startup
// handshake. Shared by every subcommand that talks to the ECU.
func connect(cmd *cobra.Command) (*ecu.Connection, error) {
	genName, _ := cmd.Flags().GetString(flagGeneration)
	gen, err := ecu.ParseGeneration(genName)
	if err != nil {
		return nil, err
	}

	var conn *ecu.Connection
	if demo, _ := cmd.Flags().GetBool(flagDemo); demo {
		conn = ecu.NewConnection(ecu.NewSimulator(), gen)
	} else {
		port, _ := cmd.Flags().GetString(flagPort)
		conn, err = ecu.Connect(port, gen)
		if err != nil {
			return nil, err
		}
	}

	ident, err := conn.InitLink()
	if err != nil {
		conn.Close()
		return nil, err
	}
	color.New(color.FgGreen).Printf("link up, ecu id: % X\n", ident)
	return conn, nil
}

// okFail prints a one-line verdict the way the old diagnostic tools did.
func okFail(name string, err error) error {
	if err != nil {
		color.New(color.FgRed).Printf("%s: failed: %v\n", name, err)
		return err
	}
	color.New(color.FgGreen).Printf("%s: ok\n", name)
	return nil
}
