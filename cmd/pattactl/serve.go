package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpX "github.com/Lllllllleong/pattadocumentflow/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = ":" + a.Cfg.Port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.Log.Info("Serving document API", "addr", addr)
		return httpX.NewServer(a.RouterConfig()).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: :$PORT)")
	rootCmd.AddCommand(serveCmd)
}
