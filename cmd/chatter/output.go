package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkoskin/chatter/src/chatsdk"
	"github.com/mkoskin/chatter/src/storage"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	imageStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func roleLabel(role string) string {
	switch role {
	case chatsdk.RoleUser:
		return userStyle.Render("you")
	case chatsdk.RoleAssistant:
		return assistantStyle.Render("assistant")
	default:
		return systemStyle.Render(role)
	}
}

// renderContent formats persisted message content for the terminal. Image
// content renders as a reference line rather than raw bytes.
func renderContent(raw string) string {
	content := chatsdk.DecodeContent(raw)
	switch content.Kind {
	case chatsdk.ContentImageFile:
		return imageStyle.Render(fmt.Sprintf("[image: %s]", content.Path))
	case chatsdk.ContentImageInline:
		return imageStyle.Render(fmt.Sprintf("[inline image, %s, %d bytes]", content.MIME, len(content.Data)))
	default:
		return content.Text
	}
}

func printTranscript(messages []storage.Message) {
	for _, m := range messages {
		fmt.Printf("%s: %s\n", roleLabel(m.Role), renderContent(m.Content))
	}
}
