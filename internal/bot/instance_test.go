package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pointsbot/internal/ledger"
)

const testAdminID int64 = 42

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mc, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, mc)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeProviders struct {
	mu    sync.Mutex
	calls []string
}

func (p *fakeProviders) record(call string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return "result for " + call
}

func (p *fakeProviders) PlayerInfo(_ context.Context, uid string) string {
	return p.record("info:" + uid)
}
func (p *fakeProviders) Likes(_ context.Context, uid string) string {
	return p.record("likes:" + uid)
}
func (p *fakeProviders) Visits(_ context.Context, uid, count string) string {
	return p.record("visit:" + uid + ":" + count)
}
func (p *fakeProviders) SearchName(_ context.Context, name string) string {
	return p.record("search:" + name)
}
func (p *fakeProviders) IsBanned(_ context.Context, uid string) string {
	return p.record("banned:" + uid)
}
func (p *fakeProviders) SpamFriend(_ context.Context, uid string) string {
	return p.record("spam:" + uid)
}
func (p *fakeProviders) AI(_ context.Context, q string) string {
	return p.record("ai:" + q)
}

func newTestBot(t *testing.T) (*Instance, *fakeSender, *fakeProviders, ledger.Store) {
	t.Helper()
	store := ledger.NewMemoryStore()
	providers := &fakeProviders{}
	inst := newInstance("test-token", Deps{
		Store:       store,
		Providers:   providers,
		AdminID:     testAdminID,
		BotUsername: "PointsBot",
	})
	fs := &fakeSender{}
	inst.send = fs
	return inst, fs, providers, store
}

func textMsg(chatID, userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Tester", UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

func registerUser(t *testing.T, b *Instance, store ledger.Store, id, balance int64) {
	t.Helper()
	ctx := context.Background()
	_, _, err := store.GetOrCreateUser(ctx, id, "Tester", "tester")
	require.NoError(t, err)
	if balance != 0 {
		_, err = store.AdjustBalance(ctx, id, balance)
		require.NoError(t, err)
	}
}

func balanceOf(t *testing.T, store ledger.Store, id int64) int64 {
	t.Helper()
	u, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.Balance
}

func TestStartRegistersAndWelcomes(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()

	b.HandleMessage(ctx, textMsg(10, 10, "/start"))

	assert.Contains(t, fs.last().Text, "HEY Tester")
	assert.NotNil(t, fs.last().ReplyMarkup)
	assert.Equal(t, int64(0), balanceOf(t, store, 10))
}

func TestReferralCreditedOnceOnFirstStart(t *testing.T) {
	b, _, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 0)

	// New user 2 starts via user 1's link.
	b.HandleMessage(ctx, textMsg(2, 2, "/start 1"))
	assert.Equal(t, int64(ReferralAward), balanceOf(t, store, 1))

	// A repeat /start with the same payload pays nothing.
	b.HandleMessage(ctx, textMsg(2, 2, "/start 1"))
	assert.Equal(t, int64(ReferralAward), balanceOf(t, store, 1))
}

func TestReferralSelfAndUnknownIgnored(t *testing.T) {
	b, _, _, store := newTestBot(t)
	ctx := context.Background()

	// Self-referral.
	b.HandleMessage(ctx, textMsg(3, 3, "/start 3"))
	assert.Equal(t, int64(0), balanceOf(t, store, 3))

	// Referrer that never started the bot.
	b.HandleMessage(ctx, textMsg(4, 4, "/start 9999"))
	assert.Equal(t, int64(0), balanceOf(t, store, 4))
}

func TestPremiumActionInsufficientBalance(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 15)

	b.HandleMessage(ctx, textMsg(1, 1, labelCheckInfo))

	assert.Contains(t, fs.last().Text, "Not enough points")
	assert.Equal(t, int64(15), balanceOf(t, store, 1))
	state, _ := b.sessions.state(1)
	assert.Equal(t, Idle, state)
}

func TestPremiumActionDebitsUpFrontNoRefund(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 100)

	b.HandleMessage(ctx, textMsg(1, 1, labelSendVisit))
	assert.Equal(t, int64(50), balanceOf(t, store, 1))
	state, _ := b.sessions.state(1)
	assert.Equal(t, AwaitingVisitID, state)

	// Invalid input reprompts, keeps the state and keeps the debit.
	b.HandleMessage(ctx, textMsg(1, 1, "not-a-uid"))
	assert.Contains(t, fs.last().Text, "Invalid UID")
	assert.Equal(t, int64(50), balanceOf(t, store, 1))
	state, _ = b.sessions.state(1)
	assert.Equal(t, AwaitingVisitID, state)
}

func TestVisitTwoStepFlow(t *testing.T) {
	b, fs, providers, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 100)

	b.HandleMessage(ctx, textMsg(1, 1, labelSendVisit))
	b.HandleMessage(ctx, textMsg(1, 1, "12345"))

	state, uid := b.sessions.state(1)
	assert.Equal(t, AwaitingVisitCount, state)
	assert.Equal(t, "12345", uid)

	b.HandleMessage(ctx, textMsg(1, 1, "3"))

	assert.Contains(t, providers.calls, "visit:12345:3")
	assert.Contains(t, fs.last().Text, "Visits Sent Successfully")
	state, _ = b.sessions.state(1)
	assert.Equal(t, Idle, state)
}

func TestCheckInfoFlow(t *testing.T) {
	b, fs, providers, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 100)

	b.HandleMessage(ctx, textMsg(1, 1, labelCheckInfo))
	assert.Equal(t, int64(80), balanceOf(t, store, 1))

	b.HandleMessage(ctx, textMsg(1, 1, "777"))

	assert.Contains(t, providers.calls, "info:777")
	assert.Equal(t, tgbotapi.ModeMarkdownV2, fs.last().ParseMode)
	state, _ := b.sessions.state(1)
	assert.Equal(t, Idle, state)
}

func TestLikesDailyDedup(t *testing.T) {
	b, fs, providers, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 0)

	b.HandleMessage(ctx, textMsg(1, 1, labelLikes))
	b.HandleMessage(ctx, textMsg(1, 1, "555"))
	assert.Contains(t, providers.calls, "likes:555")

	b.HandleMessage(ctx, textMsg(1, 1, labelLikes))
	b.HandleMessage(ctx, textMsg(1, 1, "555"))
	assert.Contains(t, fs.last().Text, "DONE FOR TODAY")

	// Only one provider call made it through.
	likes := 0
	for _, c := range providers.calls {
		if strings.HasPrefix(c, "likes:") {
			likes++
		}
	}
	assert.Equal(t, 1, likes)
}

func TestMenuLabelOverwritesPendingState(t *testing.T) {
	b, _, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 100)

	b.HandleMessage(ctx, textMsg(1, 1, labelCheckInfo))
	state, _ := b.sessions.state(1)
	require.Equal(t, AwaitingInfoID, state)

	// The label is dispatched as an action, not treated as a UID.
	b.HandleMessage(ctx, textMsg(1, 1, labelSearchByName))
	state, _ = b.sessions.state(1)
	assert.Equal(t, AwaitingSearchName, state)
}

func TestIdleUnknownTextIgnored(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 100)

	b.HandleMessage(ctx, textMsg(1, 1, "hello there"))
	b.HandleMessage(ctx, textMsg(1, 1, "/unknowncmd"))

	assert.Equal(t, 0, fs.count())
}

func TestCreateCodeAdminOnly(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()

	b.HandleMessage(ctx, textMsg(1, 1, "/createcode FREE 5 10"))
	assert.Contains(t, fs.last().Text, "not authorized")
	_, err := store.FindCode(ctx, "FREE")
	assert.ErrorIs(t, err, ledger.ErrCodeNotFound)

	b.HandleMessage(ctx, textMsg(testAdminID, testAdminID, "/createcode FREE 5 10"))
	assert.Contains(t, fs.last().Text, "created")
	c, err := store.FindCode(ctx, "FREE")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Slots)
	assert.Equal(t, int64(10), c.Points)

	b.HandleMessage(ctx, textMsg(testAdminID, testAdminID, "/createcode free 5 10"))
	assert.Contains(t, fs.last().Text, "already exists")
}

func TestRedeemCommand(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCode(ctx, "WELCOME50", 1, 100))

	// /redeem registers the user on the fly.
	b.HandleMessage(ctx, textMsg(1, 1, "/redeem welcome50"))
	assert.Contains(t, fs.last().Text, "earned 100 points")
	assert.Equal(t, int64(100), balanceOf(t, store, 1))

	b.HandleMessage(ctx, textMsg(1, 1, "/redeem WELCOME50"))
	assert.Contains(t, fs.last().Text, "already redeemed")

	b.HandleMessage(ctx, textMsg(2, 2, "/redeem WELCOME50"))
	assert.Contains(t, fs.last().Text, "no slots left")

	b.HandleMessage(ctx, textMsg(2, 2, "/redeem NOPE"))
	assert.Contains(t, fs.last().Text, "does not exist")

	b.HandleMessage(ctx, textMsg(2, 2, "/redeem"))
	assert.Contains(t, fs.last().Text, "Usage:")
}

func TestUserCountCommand(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 0)
	registerUser(t, b, store, 2, 0)

	b.HandleMessage(ctx, textMsg(1, 1, "/users"))
	assert.Contains(t, fs.last().Text, "Total users using this bot: 2")
}

func TestBonusClaimAndCooldownReply(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 0)

	b.HandleMessage(ctx, textMsg(1, 1, labelBonus))
	assert.Contains(t, fs.last().Text, "+50 points bonus")
	assert.Equal(t, int64(50), balanceOf(t, store, 1))

	b.HandleMessage(ctx, textMsg(1, 1, labelBonus))
	assert.Contains(t, fs.last().Text, "already claimed")
	assert.Contains(t, fs.last().Text, "~24 hour(s)")
	assert.Equal(t, int64(50), balanceOf(t, store, 1))
}

func TestBroadcastAdminOnly(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 1, 0)
	registerUser(t, b, store, 2, 0)

	// Non-admin broadcast is dropped without a reply.
	b.HandleMessage(ctx, textMsg(1, 1, "@everyone hi all"))
	assert.Equal(t, 0, fs.count())

	registerUser(t, b, store, testAdminID, 0)
	b.HandleMessage(ctx, textMsg(testAdminID, testAdminID, "@everyone hi all"))

	bodies := 0
	fs.mu.Lock()
	for _, m := range fs.sent {
		if m.Text == "hi all" {
			bodies++
		}
	}
	fs.mu.Unlock()
	assert.Equal(t, 3, bodies)
	assert.Contains(t, fs.last().Text, "Broadcast sent")
}

func TestBalanceAndReferralLinkReplies(t *testing.T) {
	b, fs, _, store := newTestBot(t)
	ctx := context.Background()
	registerUser(t, b, store, 7, 120)

	b.HandleMessage(ctx, textMsg(7, 7, labelBalance))
	assert.Contains(t, fs.last().Text, "120 points")

	b.HandleMessage(ctx, textMsg(7, 7, labelReferral))
	assert.Contains(t, fs.last().Text, fmt.Sprintf("https://t.me/PointsBot?start=%d", 7))
}
