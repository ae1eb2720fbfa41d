package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agendacontatos/agenda.go/pkg/apierror"
	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/agendacontatos/agenda.go/pkg/notify"
	"github.com/charmbracelet/lipgloss"
)

func levelColor(l notify.Level) lipgloss.Color {
	switch l {
	case notify.LevelError:
		return colorError
	case notify.LevelWarning:
		return colorWarning
	case notify.LevelSuccess:
		return colorSuccess
	default:
		return colorInfo
	}
}

// RenderNotification draws n as a bordered modal.
func RenderNotification(n notify.Notification) string {
	color := levelColor(n.Level)
	var lines []string
	if n.Title != "" {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(color).Render(n.Title))
	}
	lines = append(lines, textStyle.Render(n.Text()))
	return modalStyle.BorderForeground(color).Render(strings.Join(lines, "\n"))
}

// RenderError draws a canonical error the same way a notification is drawn.
func RenderError(title string, err *apierror.Error) string {
	return RenderNotification(notify.Notification{
		Title: title,
		Items: err.Lines(),
		Level: notify.LevelError,
	})
}

// RenderContacts lists contacts one per line, in the order given.
func RenderContacts(list []models.Contact) string {
	if len(list) == 0 {
		return mutedStyle.Render("No contacts.")
	}
	idWidth, nameWidth := 0, 0
	for _, c := range list {
		idWidth = max(idWidth, lipgloss.Width(c.ID.String()))
		nameWidth = max(nameWidth, lipgloss.Width(c.Name))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d contact(s)", len(list))))
	for _, c := range list {
		b.WriteString("\n")
		b.WriteString(idStyle.Width(idWidth).Render(c.ID.String()))
		b.WriteString("  ")
		b.WriteString(textStyle.Width(nameWidth).Render(c.Name))
		if details := contactDetails(c); details != "" {
			b.WriteString("  ")
			b.WriteString(mutedStyle.Render(details))
		}
	}
	return b.String()
}

func contactDetails(c models.Contact) string {
	var parts []string
	for _, v := range []string{c.Phone, c.Email} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " · ")
}

// Notifier prints notifications as modals on W.
type Notifier struct {
	W io.Writer
}

func (n Notifier) Notify(_ context.Context, v notify.Notification) {
	fmt.Fprintln(n.W, RenderNotification(v))
}

var _ notify.Notifier = Notifier{}
