// Package errors formats aggregated teardown errors for log lines.
package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

func formatError(es []error) string {
	if len(es) == 1 {
		return es[0].Error()
	}

	points := make([]string, len(es))
	for i, err := range es {
		points[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(es), strings.Join(points, "; "))
}

// FormatErrorOrNil returns nil when merr holds no errors, otherwise merr rendered on a single line.
func FormatErrorOrNil(merr *multierror.Error) error {
	if merr != nil {
		merr.ErrorFormat = formatError
	}
	return merr.ErrorOrNil()
}
