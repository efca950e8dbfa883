package errors

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatErrorOrNil(t *testing.T) {
	assert.NoError(t, FormatErrorOrNil(nil))
	assert.NoError(t, FormatErrorOrNil(&multierror.Error{}))

	errClose := errors.New("close agent")
	var merr *multierror.Error
	merr = multierror.Append(merr, errClose)

	err := FormatErrorOrNil(merr)
	require.Error(t, err)
	assert.Equal(t, "close agent", err.Error())
	assert.ErrorIs(t, err, errClose)

	merr = multierror.Append(merr, errors.New("close mux"))
	err = FormatErrorOrNil(merr)
	require.Error(t, err)
	assert.Equal(t, "2 errors occurred: close agent; close mux", err.Error())
}
