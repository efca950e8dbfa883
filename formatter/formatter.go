// Package formatter renders logrus entries as single text lines carrying the source location.
package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TextFormatter writes "<time> <LEVL> [k: v, ...] <file:line>: <message>".
type TextFormatter struct {
	timestampFormat string
	levelDesc       []string
}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		levelDesc:       []string{"PANC", "FATL", "ERRO", "WARN", "INFO", "DEBG", "TRAC"},
		timestampFormat: time.RFC3339,
	}
}

// Format renders a single log entry. Fields are sorted by key so lines of one agent line up.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == sourceField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields string
	if len(keys) > 0 {
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", k, entry.Data[k]))
		}
		fields = fmt.Sprintf("[%s] ", strings.Join(pairs, ", "))
	}

	source := ""
	if src, ok := entry.Data[sourceField]; ok {
		source = fmt.Sprintf("%v: ", src)
	}

	return []byte(fmt.Sprintf("%s %s %s%s%s\n",
		entry.Time.Format(f.timestampFormat), f.parseLevel(entry.Level), fields, source, entry.Message)), nil
}

func (f *TextFormatter) parseLevel(level logrus.Level) string {
	if int(level) >= len(f.levelDesc) {
		return ""
	}
	return f.levelDesc[level]
}
