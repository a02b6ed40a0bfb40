package main

import (
	"log"

	"github.com/joho/godotenv"

	appconfig "github.com/m3rciful/trendbot/app/config"
	apptelegram "github.com/m3rciful/trendbot/app/telegram"
	corecmd "github.com/m3rciful/trendbot/core/cmd"
)

func main() {
	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return appconfig.Load(path)
		},
		Bootstrap: apptelegram.Bootstrap,
	})
	if err != nil {
		log.Fatalf("trendbot: %v", err)
	}
}
