package formatter

import (
	"fmt"
	"path"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	sourceField = "source"
	// repoDir matches checkouts that are not built as the main module, e.g. under go test -cover.
	repoDir = "iceagent/"
)

// ContextHook records the caller as "pkg/file.go:line" in the source field. Paths inside this
// module are cut at the module root; paths of dependencies keep their last directory only.
type ContextHook struct {
	prefixes []string
}

func NewContextHook() *ContextHook {
	prefixes := []string{repoDir}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		prefixes = append([]string{info.Main.Path + "/"}, prefixes...)
	}
	return &ContextHook{prefixes: prefixes}
}

func (h *ContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire is a no-op for entries logged without ReportCaller.
func (h *ContextHook) Fire(entry *logrus.Entry) error {
	if entry.Caller == nil {
		return nil
	}
	entry.Data[sourceField] = fmt.Sprintf("%s:%d", h.relative(entry.Caller.File), entry.Caller.Line)
	return nil
}

func (h *ContextHook) relative(file string) string {
	for _, prefix := range h.prefixes {
		if i := strings.LastIndex(file, prefix); i >= 0 {
			return file[i+len(prefix):]
		}
	}
	return path.Join(path.Base(path.Dir(file)), path.Base(file))
}
