package main

import (
	"github.com/Prince10z/vibb/internal/cli"
	"github.com/Prince10z/vibb/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
