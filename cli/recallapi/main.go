package main

import (
	"os"

	apicmder "github.com/papercomputeco/recall/cmd/recall/serve/api"
)

func main() {
	cmd := apicmder.NewAPICmd()
	cmd.Use = "recallapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .recall/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
