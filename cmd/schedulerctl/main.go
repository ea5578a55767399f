package main

import (
	"os"

	"github.com/jirenz/dist-scheduler/pkg/api"
)

func main() {
	if err := api.NewCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
