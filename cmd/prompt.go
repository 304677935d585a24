package cmd

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/marcus/taskflow/internal/input"
)

// field is one value to ask for when its flag was not given.
type field struct {
	title  string
	secret bool
	value  *string
}

// interactive reports whether forms can be shown.
var interactive = func() bool {
	return !flagJSON && input.IsTerminal(os.Stdin) && input.IsTerminal(os.Stdout)
}

var newPrompter = input.NewPrompter

// promptMissing asks for every field whose value is empty: a huh form on a
// terminal, plain line reads from stdin otherwise.
func promptMissing(fields ...field) error {
	var missing []field
	for _, f := range fields {
		if *f.value == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if interactive() {
		inputs := make([]huh.Field, 0, len(missing))
		for _, f := range missing {
			in := huh.NewInput().Title(f.title).Value(f.value)
			if f.secret {
				in = in.EchoMode(huh.EchoModePassword)
			}
			inputs = append(inputs, in)
		}
		return huh.NewForm(huh.NewGroup(inputs...)).Run()
	}

	p := newPrompter()
	for _, f := range missing {
		var (
			v   string
			err error
		)
		if f.secret {
			v, err = p.Secret(f.title + ": ")
		} else {
			v, err = p.Line(f.title + ": ")
		}
		if err != nil {
			// Leave it empty; validation reports the missing field.
			continue
		}
		*f.value = v
	}
	return nil
}
