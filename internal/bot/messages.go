package bot

import (
	"fmt"

	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
)

// Callback data carried by inline buttons.
const (
	callbackStartForm = "start_form"
	callbackMatch     = "match"
)

const (
	btnStartForm   = "📝 Fill out the form"
	btnFindPartner = "🔍 Find a partner"

	msgGreeting = "👋 Hi! I'm a Random Coffee bot for English practice.\n\n" +
		"Tap the button below to fill out your profile."
	msgProfileSaved = "✅ Profile saved! Tap the button below to find a conversation partner:"
	msgNoProfile    = "Fill out your profile first — send /start"
	msgNoCandidate  = "😕 No suitable partner yet. Try again later!"
	msgSaveFailed   = "⚠️ Couldn't save your profile. Please send your goal again."
	msgGenericFail  = "⚠️ Something went wrong. Please try again later."
	msgNeedStart    = "Send /start to begin."
)

// formatMatchCard renders the partner announcement for a found match.
func formatMatchCard(p *storage.Profile) string {
	card := fmt.Sprintf("🎉 Found a partner!\n\nName: %s\nLevel: %s\nInterests: %s",
		p.Name, p.Level, p.Interests)
	if p.Username != "" {
		card += fmt.Sprintf("\nReach out: @%s", p.Username)
	}
	return card
}
