package main

import "runtime/debug"

// version reports the module version stamped by the go tool, "dev" for
// local builds.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
