// Package version хранит сведения о сборке. Значения задаются через -ldflags,
// при их отсутствии коммит берётся из VCS-меток, которые пишет go build.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build описывает собранный бинарник.
type Build struct {
	Version string
	Commit  string
	Date    string
}

var current = sync.OnceValue(func() Build {
	b := Build{Version: version, Commit: commit, Date: date}
	if info, ok := debug.ReadBuildInfo(); ok {
		b = fillFromSettings(b, info.Settings)
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
})

func fillFromSettings(b Build, settings []debug.BuildSetting) Build {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "" {
				b.Date = s.Value
			}
		}
	}
	return b
}

// Current возвращает сведения о текущей сборке.
func Current() Build { return current() }

func GetVersion() string { return current().Version }

func String() string {
	b := current()
	return fmt.Sprintf("route-demo version=%s commit=%s date=%s", b.Version, b.Commit, b.Date)
}
