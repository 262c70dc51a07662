// Package version хранит сведения о сборке. Значения задаются через
// -ldflags "-X github.com/vladislavdragonenkov/storefront/internal/version.version=...".
package version

import (
	"runtime"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Info — сведения о сборке.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

var (
	once   sync.Once
	cached Info
)

// Get возвращает сведения о сборке. Commit и Date, не заданные через ldflags,
// берутся из VCS-меток бинарника.
func Get() Info {
	once.Do(func() {
		cached = resolve(version, commit, date, debug.ReadBuildInfo)
	})
	return cached
}

func resolve(v, c, d string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: v, Commit: c, Date: d, GoVersion: runtime.Version()}
	if bi, ok := read(); ok && bi != nil {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = shortRevision(s.Value)
			case s.Key == "vcs.time" && info.Date == "":
				info.Date = s.Value
			}
		}
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// Fields отдаёт сведения о сборке полями для logrus.
func (i Info) Fields() log.Fields {
	return log.Fields{
		"version":    i.Version,
		"commit":     i.Commit,
		"build_date": i.Date,
		"go_version": i.GoVersion,
	}
}
