package main

import (
	"os"

	"github.com/mkyuone/prescribe/cmd/prescribe/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
