package formatter

import "github.com/sirupsen/logrus"

// SetTextFormatter switches logger to single-line text output with caller locations. Calling it
// again on the same logger does not stack another ContextHook.
func SetTextFormatter(logger *logrus.Logger) {
	logger.SetFormatter(NewTextFormatter())
	logger.SetReportCaller(true)

	for _, hook := range logger.Hooks[logrus.InfoLevel] {
		if _, ok := hook.(*ContextHook); ok {
			return
		}
	}
	logger.AddHook(NewContextHook())
}
