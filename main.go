package main

import (
	"os"

	_ "sapcontrol-keeper/cmd"
	"sapcontrol-keeper/cmd/root"
	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/env"
	"sapcontrol-keeper/internal/logger"
)

func main() {
	// 服务器模式同时输出到stdout
	env.Daemon = len(os.Args) > 1 && os.Args[1] == "server"
	logger.InitLoggerWithMode(&config.Config.Log, env.Daemon)
	defer logger.Sync()

	if err := root.RootCmd.Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}
