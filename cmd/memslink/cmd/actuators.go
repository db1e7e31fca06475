package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"memslink/internal/ecu"
)

func init() {
	rootCmd.AddCommand(fuelPumpCmd)
	rootCmd.AddCommand(ptcCmd)
	rootCmd.AddCommand(acCmd)
	rootCmd.AddCommand(coilCmd)
	rootCmd.AddCommand(injectorsCmd)
	rootCmd.AddCommand(clearFaultsCmd)
	rootCmd.AddCommand(heartbeatCmd)
}

// relayTest turns a relay on, holds it for two seconds, then sends the off
// command. The ECU drops the relay by itself well before that, but sending
// the pair matches what the factory diagnostic tools do.
func relayTest(cmd *cobra.Command, name string, set func(*ecu.Connection, bool) error) error {
	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := set(conn, true); err != nil {
		return okFail(name, err)
	}
	select {
	case <-cmd.Context().Done():
	case <-time.After(2 * time.Second):
	}
	return okFail(name, set(conn, false))
}

var fuelPumpCmd = &cobra.Command{
	Use:   "fuelpump",
	Short: "Run the fuel pump briefly",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return relayTest(cmd, "fuel pump", (*ecu.Connection).FuelPump)
	},
}

var ptcCmd = &cobra.Command{
	Use:   "ptc",
	Short: "Run the manifold heater (PTC) relay briefly",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return relayTest(cmd, "ptc relay", (*ecu.Connection).PTCRelay)
	},
}

var acCmd = &cobra.Command{
	Use:   "ac",
	Short: "Run the air conditioning relay briefly",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return relayTest(cmd, "ac relay", (*ecu.Connection).ACRelay)
	},
}

var coilCmd = &cobra.Command{
	Use:   "coil",
	Short: "Fire the ignition coil once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		return okFail("coil", conn.FireCoil())
	},
}

var injectorsCmd = &cobra.Command{
	Use:   "injectors",
	Short: "Cycle the fuel injectors once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		return okFail("injectors", conn.TestInjectors())
	},
}

var clearFaultsCmd = &cobra.Command{
	Use:   "clear-faults",
	Short: "Clear stored fault codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		return okFail("clear faults", conn.ClearFaults())
	},
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Ping the ECU",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		return okFail("heartbeat", conn.Heartbeat())
	},
}
