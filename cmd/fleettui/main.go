package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"rigfleet/cmd/fleettui/ui"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:9600", "Fleet daemon base URL")
	flag.Parse()

	p := tea.NewProgram(ui.NewRootModel(*server), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fleettui: %v\n", err)
		os.Exit(1)
	}
}
