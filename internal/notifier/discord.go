package notifier

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/staldhusene/faellesspisning/internal/models"
)

// Dinner is what gets announced when a cook publishes a menu.
type Dinner struct {
	Row          int
	Menu         string
	Chefs        string
	ExpenseHouse string
	CanAvoid     models.Allergens
}

type Notifier interface {
	NotifyDinnerPublished(d Dinner) error
}

// ChannelSender is the part of a discordgo session used for notifications.
type ChannelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   ChannelSender
	channelID string
}

func NewDiscordNotifier(session ChannelSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) NotifyDinnerPublished(d Dinner) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, FormatDinner(d))
	if err != nil {
		slog.Error("failed to send discord message", "error", err)
		return err
	}

	return nil
}

// FormatDinner renders the announcement text.
func FormatDinner(d Dinner) string {
	var avoid []string
	for i, ok := range d.CanAvoid.Flags() {
		if ok {
			avoid = append(avoid, strings.ToLower(models.AllergenNames[i]))
		}
	}

	message := fmt.Sprintf("🍽️ **Ny fællesspisning**\n**Menu:** %s\n**Kokke:** %s\n**Hus:** %s",
		d.Menu,
		d.Chefs,
		d.ExpenseHouse,
	)
	if len(avoid) > 0 {
		message += fmt.Sprintf("\n**Kan undgå:** %s", strings.Join(avoid, ", "))
	}
	return message
}
