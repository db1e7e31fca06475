package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"memslink/internal/ecu"
)

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readRawCmd)
	rootCmd.AddCommand(readIACCmd)
}

// parseLoopCount interprets the optional trailing argument the same way
// the old readmems tool did: a number, or "inf" to loop until interrupted.
func parseLoopCount(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 1, false, nil
	}
	if args[0] == "inf" {
		return 0, true, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, false, fmt.Errorf("invalid loop count %q", args[0])
	}
	return n, false, nil
}

var readCmd = &cobra.Command{
	Use:   "read [count|inf]",
	Short: "Read and decode telemetry snapshots",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, inf, err := parseLoopCount(args)
		if err != nil {
			return err
		}
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		for i := 0; inf || i < count; i++ {
			if cmd.Context().Err() != nil {
				return nil
			}
			snap, err := conn.Read()
			if err != nil {
				return err
			}
			printTelemetry(conn.Generation(), snap)
		}
		return nil
	},
}

var readRawCmd = &cobra.Command{
	Use:   "read-raw [count|inf]",
	Short: "Read telemetry frames without decoding",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, inf, err := parseLoopCount(args)
		if err != nil {
			return err
		}
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		for i := 0; inf || i < count; i++ {
			if cmd.Context().Err() != nil {
				return nil
			}
			raw, err := conn.ReadRaw()
			if err != nil {
				return err
			}
			line, err := json.Marshal(raw)
			if err != nil {
				return err
			}
			fmt.Println(string(line))
		}
		return nil
	},
}

var readIACCmd = &cobra.Command{
	Use:   "read-iac",
	Short: "Read the idle air control valve position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		pos, err := conn.ReadIACPosition()
		if err != nil {
			return err
		}
		fmt.Printf("0x%02X\n", pos)
		return nil
	},
}

func printTelemetry(gen ecu.Generation, t *ecu.Telemetry) {
	label := color.New(color.FgCyan)
	label.Printf("rpm ")
	fmt.Printf("%d  ", t.EngineRPM)
	if gen == ecu.GenDualFrame {
		label.Printf("coolant ")
		fmt.Printf("%d°C  ", t.CoolantTempC)
		label.Printf("intake ")
		fmt.Printf("%d°C  ", t.IntakeAirTempC)
		label.Printf("map ")
		fmt.Printf("%.0fkPa  ", t.MAPKpa)
	} else {
		label.Printf("coolant ")
		fmt.Printf("%d°F  ", t.CoolantTempF)
		label.Printf("intake ")
		fmt.Printf("%d°F  ", t.IntakeAirTempF)
		label.Printf("map ")
		fmt.Printf("%.1fpsi  ", t.MAPPsi)
	}
	label.Printf("batt ")
	fmt.Printf("%.1fV  ", t.BatteryVoltage)
	label.Printf("tps ")
	fmt.Printf("%.2fV  ", t.ThrottlePotVoltage)
	label.Printf("iac ")
	fmt.Printf("%d  ", t.IACPosition)
	if gen == ecu.GenDualFrame {
		label.Printf("lambda ")
		fmt.Printf("%dmV  ", t.LambdaVoltageMV)
		label.Printf("adv ")
		fmt.Printf("%.1f°  ", t.IgnitionAdvance)
	}
	if t.FaultCodes != 0 {
		color.New(color.FgRed).Printf("faults 0x%02X", t.FaultCodes)
	}
	fmt.Println()
}
