package common

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderError writes err and each distinct cause beneath it in red.
func RenderError(w io.Writer, err error) {
	if err == nil {
		return
	}

	lines := []string{"Error: " + err.Error()}
	for _, cause := range causes(err) {
		lines = append(lines, "  caused by: "+cause)
	}

	fmt.Fprintln(w, text.FgRed.Sprint(strings.Join(lines, "\n")))
}

// causes lists the messages of the wrapped errors, following the first
// branch of joined errors and dropping messages equal to their parent.
func causes(err error) []string {
	var out []string
	prev := err.Error()
	for {
		err = unwrapOne(err)
		if err == nil {
			return out
		}
		msg := err.Error()
		if msg != prev {
			out = append(out, msg)
		}
		prev = msg
	}
}

func unwrapOne(err error) error {
	if next := errors.Unwrap(err); next != nil {
		return next
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}
