package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], commandIO{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}))
}

func run(args []string, streams commandIO) int {
	root := newRootCommand(streams)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(errorOutput(streams), "error: %v\n", err)
		return 1
	}
	return 0
}

func errorOutput(streams commandIO) io.Writer {
	if streams.stderr == nil {
		return os.Stderr
	}
	return streams.stderr
}
