package main

import (
	"github.com/astrostat/fasthr/fasthr/cmd"
)

func main() {
	cmd.Execute()
}
