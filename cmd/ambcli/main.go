package main

import (
	"github.com/robotalks/ambsi.go/pkg/cli/sh"

	_ "github.com/robotalks/ambsi.go/pkg/cli/cmds/ambsi"
)

//go-build: CGO_ENABLED=0

func init() {
	sh.SetupFlags()
}

func main() {
	sh.Main()
}
