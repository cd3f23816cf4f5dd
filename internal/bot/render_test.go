package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanResponse(t *testing.T) {
	raw := "Name: Alice\nInfo Admin - Group: t.me/somewhere\nLevel: 42\nChannel Telegram: t.me/other"
	assert.Equal(t, "Name: Alice\nLevel: 42", CleanResponse(raw))

	// Clean input passes through unchanged, however many times it runs.
	clean := "Name: Alice\nLevel: 42"
	assert.Equal(t, clean, CleanResponse(CleanResponse(clean)))
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, "plain text 123", EscapeMarkdownV2("plain text 123"))
	assert.Equal(t, `\*bold\* \[link\]\(url\)\!`, EscapeMarkdownV2("*bold* [link](url)!"))
	assert.Equal(t, `1\.5 \- 2\.0`, EscapeMarkdownV2("1.5 - 2.0"))
}

func TestParseAction(t *testing.T) {
	a, ok := parseAction(labelSendVisit)
	assert.True(t, ok)
	assert.Equal(t, actionSendVisit, a)
	assert.Equal(t, int64(costSendVisit), a.cost())
	assert.Equal(t, AwaitingVisitID, a.awaitState())

	_, ok = parseAction("random text")
	assert.False(t, ok)

	// Free actions carry no cost.
	assert.Equal(t, int64(0), actionLikes.cost())
	assert.Equal(t, int64(0), actionCheckBanned.cost())
	assert.Equal(t, int64(0), actionBonus.cost())
}
