package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	userStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))  // bold red
	botStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")) // bold blue
)

// userLabel renders the user prompt label with the turn counter.
func userLabel(turn int) string {
	if !stdoutIsTerminal() {
		return fmt.Sprintf("User [%d]", turn)
	}
	return fmt.Sprintf("%s [%d]", userStyle.Render("User"), turn)
}

// botLabel renders the bot reply label with the turn counter.
func botLabel(turn int) string {
	if !stdoutIsTerminal() {
		return fmt.Sprintf("Bot [%d]", turn)
	}
	return fmt.Sprintf("%s [%d]", botStyle.Render("Bot"), turn)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
