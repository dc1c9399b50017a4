package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"otb/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderCheckLine(result preflight.Result, colorize bool) string {
	label := "OK"
	color := ansiGreen
	if !result.Passed {
		label = "ERROR"
		color = ansiRed
	}
	statusText := fmt.Sprintf("[%s]", label)
	if result.Detail != "" {
		statusText = fmt.Sprintf("[%s] %s", label, result.Detail)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, result.Name+":", statusText)
	if colorize {
		return color + base + ansiReset
	}
	return base
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
