package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"memslink/internal/ecu"
)

func init() {
	rootCmd.AddCommand(iacOpenCmd)
	rootCmd.AddCommand(iacCloseCmd)
	rootCmd.AddCommand(iacMoveCmd)
}

var iacOpenCmd = &cobra.Command{
	Use:   "iac-open",
	Short: "Drive the idle air control valve fully open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		pos, err := conn.MoveIAC(ecu.IACMaximum)
		if err != nil {
			return err
		}
		fmt.Printf("iac at 0x%02X\n", pos)
		return nil
	},
}

var iacCloseCmd = &cobra.Command{
	Use:   "iac-close",
	Short: "Drive the idle air control valve fully closed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		pos, err := conn.MoveIAC(0)
		if err != nil {
			return err
		}
		fmt.Printf("iac at 0x%02X\n", pos)
		return nil
	},
}

var iacMoveCmd = &cobra.Command{
	Use:   "iac-move <target>",
	Short: "Drive the idle air control valve to a position (0-180)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil || target > ecu.IACMaximum {
			return fmt.Errorf("target must be 0-%d (0x00-0x%02X)", ecu.IACMaximum, ecu.IACMaximum)
		}

		conn, err := connect(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		pos, err := conn.MoveIAC(uint8(target))
		if err != nil {
			return err
		}
		fmt.Printf("iac at 0x%02X\n", pos)
		return nil
	},
}
