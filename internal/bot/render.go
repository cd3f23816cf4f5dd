package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// boilerplateLines are dropped from provider responses before replying.
var boilerplateLines = []string{
	"Info Admin - Group",
	"Admin",
	"Telegram",
	"Channel Telegram",
	"Group Zalo",
}

// CleanResponse removes provider boilerplate lines. Idempotent on text
// that carries none.
func CleanResponse(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		drop := false
		for _, b := range boilerplateLines {
			if strings.Contains(line, b) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes the characters Telegram's MarkdownV2 parse mode
// reserves.
func EscapeMarkdownV2(text string) string {
	return markdownEscaper.Replace(text)
}

// mainKeyboard is the persistent reply keyboard offered after /start.
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelCheckInfo),
			tgbotapi.NewKeyboardButton(labelLikes),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelSendVisit),
			tgbotapi.NewKeyboardButton(labelSearchByName),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelCheckBanned),
			tgbotapi.NewKeyboardButton(labelSpamFriend),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelBalance),
			tgbotapi.NewKeyboardButton(labelReferral),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(labelOwner),
			tgbotapi.NewKeyboardButton(labelBonus),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
