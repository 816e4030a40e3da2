package util

import (
	"errors"
	"fmt"
)

// FormatErrorList() is a wrapper function that unifies error list formatting
// and makes printing error lists consistent. The error returned is not an
// error in itself but a single condensed error composed of every error in
// the errList argument.
func FormatErrorList(errList []error) error {
	var errmsg string
	for i, e := range errList {
		errmsg += fmt.Sprintf("\t[%d] %v\n", i, e)
	}
	return errors.New(errmsg)
}

// HasErrors() is a simple wrapper function to check if an error list
// contains errors.
func HasErrors(errList []error) bool {
	return len(errList) > 0
}
