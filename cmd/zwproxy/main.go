package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/robotalks/zwproxy/pkg/env/proxy"
	"github.com/robotalks/zwproxy/pkg/framework"
)

func init() {
	proxy.SetupFlags()
}

func main() {
	flag.Parse()

	env := proxy.NewConfig().MustNewEnv()
	framework.NewLoop().Add(env).RunOrFail()
}
