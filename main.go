package main

import (
	"os"

	"github.com/scan-io-git/yarascan/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
