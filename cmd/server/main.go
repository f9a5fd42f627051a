package main

import (
	"github.com/chogerlate/NovelVizAI/internal/server"
	"github.com/chogerlate/NovelVizAI/internal/util"
	"github.com/chogerlate/NovelVizAI/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(debug)

	server.Init()
}
