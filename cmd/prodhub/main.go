package main

import (
	"os"

	"github.com/platinummonkey/prodhub/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
