package lexy

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lexyhq/lexy/internal/conf"
	"github.com/lexyhq/lexy/internal/lexy"
)

var (
	configPath string
	httpAddr   string
	dataDir    string
	memoryMode bool
)

func init() {
	serverCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	serverCmd.Flags().StringVarP(&httpAddr, "addr", "a", "", "HTTP listen address")
	serverCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "data directory")
	serverCmd.Flags().BoolVar(&memoryMode, "memory", false, "keep projects in memory only")
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Lexy HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := conf.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		if httpAddr != "" {
			cfg.HTTPAddr = httpAddr
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if memoryMode {
			cfg.Memory = true
		}

		app, err := lexy.New(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start")
		}

		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			log.Info().Msg("shutting down")
			if err := app.Stop(); err != nil {
				log.Err(err).Msg("shutdown error")
			}
		}()

		if err := app.Run(); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	},
}
