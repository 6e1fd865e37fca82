package main

import (
	"os"

	"github.com/andresuchdata/revdeploy/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("revdeploy failed")
	}
}
