package main

import (
	"os"

	"tif-patch/internal/api/cli"
)

// Версия задаётся при сборке через -ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	// ошибки уже напечатаны printer
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
