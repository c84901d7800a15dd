package main

import (
	"github.com/meridian-kg/backend/internal/server"
	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
