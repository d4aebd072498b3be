package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/m3rciful/stickerbot/core/app"
	"github.com/m3rciful/stickerbot/core/bootstrap"
	"github.com/m3rciful/stickerbot/core/cmd"
	"github.com/m3rciful/stickerbot/core/config"
)

func main() {
	// Local development convenience; absence of .env is not an error.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()
			result, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return app.New(cfg, result.DB)
		},
	})
	if err != nil {
		log.Printf("stickerbot: %v", err)
		os.Exit(1)
	}
}
