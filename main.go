package main

import (
	"os"

	"github.com/birmacher/tutor-relay/cmd"
	"github.com/birmacher/tutor-relay/logger"
)

func main() {
	err := cmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
