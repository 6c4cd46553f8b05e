package utils

import (
	"os"

	"github.com/yassinebenaid/godump"
)

// Dump pretty-prints a value to stdout without terminal colors.
func Dump(v any) error {
	var d godump.Dumper

	d.Theme = godump.Theme{}
	return d.Println(v)
}

// DumpFile writes the pretty-printed value to filename.
func DumpFile(v any, filename string) error {
	var d godump.Dumper

	d.Theme = godump.Theme{}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.Fprintln(f, v)
}
