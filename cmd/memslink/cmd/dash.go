package cmd

import (
	"github.com/spf13/cobra"

	"memslink/internal/ecu"
	"memslink/internal/server"
	"memslink/web"
)

func init() {
	dashCmd.Flags().StringP(flagConfig, "c", "/etc/memslink/config.yaml", "path to config file")
	dashCmd.Flags().String("listen", "", "override listen address (e.g. :8080)")
	rootCmd.AddCommand(dashCmd)
}

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Serve the web telemetry dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString(flagConfig)
		cfg := server.LoadConfig(configPath)

		if cmd.Flags().Changed(flagPort) {
			cfg.ECU.Port, _ = cmd.Flags().GetString(flagPort)
		}
		if cmd.Flags().Changed(flagGeneration) {
			cfg.ECU.Generation, _ = cmd.Flags().GetString(flagGeneration)
		}
		if demo, _ := cmd.Flags().GetBool(flagDemo); demo {
			cfg.ECU.Demo = true
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.Server.ListenAddr = addr
		}

		gen, err := ecu.ParseGeneration(cfg.ECU.Generation)
		if err != nil {
			return err
		}

		var conn *ecu.Connection
		if cfg.ECU.Demo {
			conn = ecu.NewConnection(ecu.NewSimulator(), gen)
		} else {
			conn, err = ecu.Connect(cfg.ECU.Port, gen)
			if err != nil {
				return err
			}
		}
		defer conn.Close()

		srv := server.New(cfg, conn, web.FS)
		return srv.Run(cmd.Context())
	},
}
