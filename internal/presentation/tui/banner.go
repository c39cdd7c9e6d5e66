package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ombibot banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"                 _     _ _           _   ", "#818cf8"},
		{"   ___  _ __ ___ | |__ (_) |__   ___ | |_ ", "#a78bfa"},
		{"  / _ \\| '_ ` _ \\| '_ \\| | '_ \\ / _ \\| __|", "#c084fc"},
		{" | (_) | | | | | | |_) | | |_) | (_) | |_ ", "#e879f9"},
		{"  \\___/|_| |_| |_|_.__/|_|_.__/ \\___/ \\__|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
