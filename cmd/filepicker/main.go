package main

import (
	"os"

	"github.com/spf13/afero"
)

func main() {
	root := newRootCommand(newApp(afero.NewOsFs(), os.Stdout, os.Stderr, newSurveyPrompter()))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
