package version

import (
	"runtime/debug"
	"time"
)

// Tag is set at build time with -ldflags "-X .../version.Tag=v1.2.3".
var Tag string

var (
	Revision string
	BuildAt  string
	Dirty    bool
)

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range buildInfo.Settings {
		// https://pkg.go.dev/runtime/debug#BuildSetting
		switch setting.Key {
		case "vcs.revision":
			Revision = setting.Value
		case "vcs.time":
			BuildAt = setting.Value
		case "vcs.modified":
			Dirty = setting.Value == "true"
		}
	}
}

func String() string {
	return format(Tag, Revision, BuildAt, Dirty)
}

func format(tag, revision, buildAt string, dirty bool) string {
	// go run
	if revision == "" {
		if tag != "" {
			return tag
		}
		return "dev"
	}

	if len(revision) > 7 {
		revision = revision[:7]
	}
	if t, err := time.Parse(time.RFC3339, buildAt); err == nil {
		buildAt = t.Format("2006-01-02 15:04:05")
	}

	s := revision
	if tag != "" {
		s = tag + " " + revision
	}
	if buildAt != "" {
		s += " at " + buildAt
	}
	if dirty {
		s += " dirty"
	}
	return s
}

// Short is the tag, or the abbreviated revision for untagged builds.
func Short() string {
	switch {
	case Tag != "":
		return Tag
	case len(Revision) > 7:
		return Revision[:7]
	case Revision != "":
		return Revision
	default:
		return "dev"
	}
}
