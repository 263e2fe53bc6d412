package main

import (
	"github.com/dmitrijs2005/ghostmirror/internal/buildinfo"
	"github.com/dmitrijs2005/ghostmirror/internal/cli"
)

func main() {
	cli.SetVersion(buildinfo.BuildVersion)
	cli.Execute()
}
