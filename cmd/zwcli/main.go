package main

import (
	"github.com/robotalks/zwproxy/pkg/cli/sh"
	env "github.com/robotalks/zwproxy/pkg/env/connector"

	_ "github.com/robotalks/zwproxy/pkg/cli/cmds/zwave"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
