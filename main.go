package main

import (
	"runtime/debug"

	"github.com/teemow/calassist/cmd"
)

// version is overridden at link time:
//
//	go build -ldflags "-X main.version=v1.2.3"
var version = "dev"

func main() {
	cmd.SetVersion(buildVersion())
	cmd.Execute()
}

// buildVersion falls back to the module version recorded by go install when
// no version was linked in.
func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}
