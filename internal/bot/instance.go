package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"pointsbot/internal/ledger"
	"pointsbot/internal/logger"
	"pointsbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Providers are the third-party content APIs behind the premium actions.
// Calls never fail; transport errors come back as the provider's fixed
// failure text.
type Providers interface {
	PlayerInfo(ctx context.Context, uid string) string
	Likes(ctx context.Context, uid string) string
	Visits(ctx context.Context, uid, count string) string
	SearchName(ctx context.Context, name string) string
	IsBanned(ctx context.Context, uid string) string
	SpamFriend(ctx context.Context, uid string) string
	AI(ctx context.Context, question string) string
}

// sender is the outbound half of the Telegram API. *tgbotapi.BotAPI
// satisfies it; tests plug in a capture.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// discardSender drops outbound messages. Default until a real API or a
// test capture is attached.
type discardSender struct{}

func (discardSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, nil
}

// Deps are the shared collaborators an instance binds to.
type Deps struct {
	Store       ledger.Store
	Providers   Providers
	AdminID     int64
	BotUsername string
}

// Instance is one isolated bot: its own update loop and session state over
// the shared ledger.
type Instance struct {
	token     string
	api       *tgbotapi.BotAPI
	send      sender
	store     ledger.Store
	bonus     *service.BonusClock
	redeem    *service.RedeemEngine
	providers Providers
	adminID   int64
	botUser   string

	sessions *sessionManager
	likesMu  sync.Mutex
	likesLog map[string]bool // per-process dedup for the free likes action

	log    *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewInstance authorizes against the Telegram API and builds a ready
// instance. The caller starts the update loop with Start.
func NewInstance(token string, deps Deps) (*Instance, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}

	inst := newInstance(token, deps)
	inst.api = api
	inst.send = api
	inst.log = logger.With("component", "bot", "bot_username", api.Self.UserName)
	inst.log.Info("bot authorized")
	return inst, nil
}

// NewTestInstance builds an instance that never contacts Telegram: Start
// returns immediately and nothing is sent. For tests outside this package.
func NewTestInstance(token string, deps Deps) *Instance {
	return newInstance(token, deps)
}

func newInstance(token string, deps Deps) *Instance {
	return &Instance{
		token:     token,
		send:      discardSender{},
		store:     deps.Store,
		bonus:     service.NewBonusClock(deps.Store),
		redeem:    service.NewRedeemEngine(deps.Store),
		providers: deps.Providers,
		adminID:   deps.AdminID,
		botUser:   deps.BotUsername,
		sessions:  newSessionManager(),
		likesLog:  make(map[string]bool),
		log:       logger.With("component", "bot"),
		stopCh:    make(chan struct{}),
	}
}

// Start consumes updates until Stop. Each message is handled in its own
// goroutine under a bounded deadline so one slow provider call cannot
// stall other chats.
func (b *Instance) Start() {
	if b.api == nil {
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				b.HandleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

// Stop halts the update loop and waits briefly for in-flight handlers.
func (b *Instance) Stop() {
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

var (
	numericRe   = regexp.MustCompile(`^\d+$`)
	broadcastRe = regexp.MustCompile(`^@everyone\s+(.+)`)
)

// HandleMessage routes one inbound message: commands first, then the
// broadcast form, then menu actions (which overwrite any pending state),
// and finally pending-state free text. Unknown text in an idle chat is
// ignored.
func (b *Instance) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	switch {
	case strings.HasPrefix(text, "/"):
		UpdatesProcessed.WithLabelValues("command").Inc()
		b.handleCommand(ctx, msg, text)
	case broadcastRe.MatchString(text):
		UpdatesProcessed.WithLabelValues("broadcast").Inc()
		b.handleBroadcast(ctx, msg, broadcastRe.FindStringSubmatch(text)[1])
	default:
		if a, ok := parseAction(text); ok {
			UpdatesProcessed.WithLabelValues("action").Inc()
			b.handleAction(ctx, msg, a)
			return
		}
		state, uid := b.sessions.state(msg.Chat.ID)
		if state == Idle {
			return
		}
		UpdatesProcessed.WithLabelValues("input").Inc()
		b.handleAwaitingInput(ctx, msg, state, uid, text)
	}
}

func (b *Instance) handleCommand(ctx context.Context, msg *tgbotapi.Message, text string) {
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "/start":
		b.handleStart(ctx, msg, parts[1:])
	case "/createcode":
		b.handleCreateCode(ctx, msg, parts[1:])
	case "/redeem":
		b.handleRedeem(ctx, msg, parts[1:])
	case "/users":
		b.handleUserCount(ctx, msg)
	case "/ai":
		b.handleAI(ctx, msg, strings.TrimSpace(strings.TrimPrefix(text, parts[0])))
	default:
		// Unknown commands are ignored, like unknown idle text.
	}
}

// handleStart registers the user on first contact and credits the referrer
// named in the start payload. The referral bonus is granted at most once:
// only when this call actually created the user. Self-referral is
// rejected.
func (b *Instance) handleStart(ctx context.Context, msg *tgbotapi.Message, args []string) {
	from := msg.From
	user, created, err := b.store.GetOrCreateUser(ctx, from.ID, from.FirstName, from.UserName)
	if err != nil {
		b.log.Error("failed to register user", "user_id", from.ID, "error", err)
		b.reply(msg, "Something went wrong. Please try again.")
		return
	}

	if created && len(args) > 0 {
		b.creditReferrer(ctx, msg, args[0], from.ID)
	}

	name := from.FirstName
	if name == "" {
		name = "User"
	}
	welcome := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"❤️ HEY %s!!\n\nWelcome aboard. Spend points on the premium actions below, earn more via the daily bonus, referrals and redeem codes.\n\nYour balance: %d points.",
		name, user.Balance,
	))
	welcome.ReplyToMessageID = msg.MessageID
	welcome.ReplyMarkup = mainKeyboard()
	b.deliver(welcome)
}

func (b *Instance) creditReferrer(ctx context.Context, msg *tgbotapi.Message, payload string, newUserID int64) {
	referrerID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || referrerID == newUserID {
		return
	}

	ref, err := b.store.AdjustBalance(ctx, referrerID, ReferralAward)
	if err != nil {
		// Referrals only pay out for referrers that already exist.
		if !errors.Is(err, ledger.ErrUserNotFound) {
			b.log.Error("failed to credit referrer", "referrer_id", referrerID, "error", err)
		}
		return
	}
	b.reply(msg, fmt.Sprintf("You were referred by %s. They have earned %d points!", ref.FirstName, ReferralAward))
}

func (b *Instance) handleCreateCode(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if msg.From.ID != b.adminID {
		b.reply(msg, "❌ You are not authorized to create codes.")
		return
	}
	if len(args) < 3 {
		b.reply(msg, "Usage: /createcode [CODE] [SLOTS] [POINTS]")
		return
	}

	code := args[0]
	slots, err1 := strconv.Atoi(args[1])
	points, err2 := strconv.ParseInt(args[2], 10, 64)
	if code == "" || err1 != nil || err2 != nil {
		b.reply(msg, "Invalid arguments. Usage: /createcode [CODE] [SLOTS] [POINTS]")
		return
	}

	if err := b.store.CreateCode(ctx, code, slots, points); err != nil {
		if errors.Is(err, ledger.ErrCodeExists) {
			b.reply(msg, fmt.Sprintf("❌ Code %q already exists.", code))
			return
		}
		b.log.Error("failed to create code", "code", code, "error", err)
		b.reply(msg, "Failed to create code. Please try again.")
		return
	}
	b.reply(msg, fmt.Sprintf("✅ Code %q created with %d slots and %d points!", code, slots, points))
}

func (b *Instance) handleRedeem(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		b.reply(msg, "Usage: /redeem [CODE]")
		return
	}

	if _, _, err := b.store.GetOrCreateUser(ctx, msg.From.ID, msg.From.FirstName, msg.From.UserName); err != nil {
		b.log.Error("failed to register user", "user_id", msg.From.ID, "error", err)
		b.reply(msg, "Something went wrong. Please try again.")
		return
	}

	res, err := b.redeem.Redeem(ctx, args[0], msg.From.ID)
	switch {
	case err == nil:
		Redemptions.WithLabelValues("ok").Inc()
		b.reply(msg, fmt.Sprintf("✅ You have redeemed code %q and earned %d points!", res.Code, res.Award))
	case errors.Is(err, ledger.ErrCodeNotFound) || errors.Is(err, service.ErrInvalidCode):
		Redemptions.WithLabelValues("not_found").Inc()
		b.reply(msg, fmt.Sprintf("❌ Code %q does not exist or is invalid.", args[0]))
	case errors.Is(err, ledger.ErrAlreadyRedeemed):
		Redemptions.WithLabelValues("already_redeemed").Inc()
		b.reply(msg, "❌ You have already redeemed this code.")
	case errors.Is(err, ledger.ErrNoSlotsLeft):
		Redemptions.WithLabelValues("no_slots").Inc()
		b.reply(msg, "❌ This code is fully redeemed (no slots left).")
	default:
		Redemptions.WithLabelValues("error").Inc()
		b.log.Error("redeem failed", "code", args[0], "error", err)
		b.reply(msg, "Failed to redeem. Please try again.")
	}
}

func (b *Instance) handleUserCount(ctx context.Context, msg *tgbotapi.Message) {
	n, err := b.store.CountUsers(ctx)
	if err != nil {
		b.log.Error("failed to count users", "error", err)
		b.reply(msg, "Failed to count users. Please try again.")
		return
	}
	b.reply(msg, fmt.Sprintf("🤖 Total users using this bot: %d", n))
}

func (b *Instance) handleAI(ctx context.Context, msg *tgbotapi.Message, question string) {
	if question == "" {
		b.reply(msg, "Please provide a question after the command. Example: /ai What is the meaning of life?")
		return
	}

	b.reply(msg, "⏳ Processing your query....")
	answer := b.providers.AI(ctx, question)
	b.replyMarkdown(msg, "*AI Response:*\n\n"+EscapeMarkdownV2(CleanResponse(answer)))
}

// handleBroadcast fans a message out to every known user. Admin only;
// anyone else is silently ignored. Per-recipient failures are logged and
// swallowed so one blocked chat never aborts the loop.
func (b *Instance) handleBroadcast(ctx context.Context, msg *tgbotapi.Message, body string) {
	if msg.From.ID != b.adminID {
		return
	}

	users, err := b.store.ListUsers(ctx)
	if err != nil {
		b.log.Error("failed to list users for broadcast", "error", err)
		b.reply(msg, "Failed to load users. Please try again.")
		return
	}

	sent, failed := 0, 0
	for _, u := range users {
		if _, err := b.send.Send(tgbotapi.NewMessage(u.ID, body)); err != nil {
			b.log.Error("failed to send broadcast", "user_id", u.ID, "error", err)
			BroadcastMessages.WithLabelValues("failed").Inc()
			failed++
			continue
		}
		BroadcastMessages.WithLabelValues("sent").Inc()
		sent++
	}

	b.log.Info("broadcast complete", "sent", sent, "failed", failed)
	b.reply(msg, "Broadcast sent to all users.")
}

// handleAction runs a menu action from any state. Premium actions debit
// the fixed cost up front and only then open the pending-input state;
// an unaffordable action replies and changes nothing.
func (b *Instance) handleAction(ctx context.Context, msg *tgbotapi.Message, a action) {
	user, _, err := b.store.GetOrCreateUser(ctx, msg.From.ID, msg.From.FirstName, msg.From.UserName)
	if err != nil {
		b.log.Error("failed to register user", "user_id", msg.From.ID, "error", err)
		b.reply(msg, "Something went wrong. Please try again.")
		return
	}

	switch a {
	case actionBalance:
		b.reply(msg, fmt.Sprintf("Your current balance is: %d points.", user.Balance))

	case actionReferral:
		b.reply(msg, fmt.Sprintf(
			"Share this link with new users:\nhttps://t.me/%s?start=%d\n\nYou'll earn %d points if they start the bot using your link!",
			b.botUser, user.ID, ReferralAward,
		))

	case actionOwner:
		b.reply(msg, "Now you know who is behind it 💻")

	case actionBonus:
		res, err := b.bonus.Claim(ctx, user.ID)
		switch {
		case err == nil:
			b.reply(msg, fmt.Sprintf("🎉 You have received a +%d points bonus!", res.Award))
		case errors.Is(err, ledger.ErrBonusNotReady):
			b.reply(msg, fmt.Sprintf(
				"❌ You have already claimed your bonus in the last 24 hours.\nCome back in ~%d hour(s).",
				res.HoursRemaining,
			))
		default:
			b.log.Error("bonus claim failed", "user_id", user.ID, "error", err)
			b.reply(msg, "Failed to claim bonus. Please try again.")
		}

	case actionCheckInfo, actionLikes, actionSendVisit, actionSearchByName, actionCheckBanned, actionSpamFriend:
		b.startPremium(ctx, msg, a)
	}
}

func (b *Instance) startPremium(ctx context.Context, msg *tgbotapi.Message, a action) {
	if cost := a.cost(); cost > 0 {
		if _, err := b.store.AdjustBalance(ctx, msg.From.ID, -cost); err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				b.reply(msg, fmt.Sprintf("❌ Not enough points to %s. Earn points via referral, bonus or redeem codes.", a.label()))
				return
			}
			b.log.Error("debit failed", "user_id", msg.From.ID, "action", a.label(), "error", err)
			b.reply(msg, "Something went wrong. Please try again.")
			return
		}
	}

	b.sessions.await(msg.Chat.ID, a.awaitState())
	b.reply(msg, a.prompt())
}

// handleAwaitingInput consumes free text for the chat's pending state.
// Invalid input reprompts and keeps the state (and the debit — charging
// happens at action time, deliberately without refunds).
func (b *Instance) handleAwaitingInput(ctx context.Context, msg *tgbotapi.Message, state State, visitUID, input string) {
	chatID := msg.Chat.ID

	switch state {
	case AwaitingVisitID:
		if !numericRe.MatchString(input) {
			b.reply(msg, "❌ Invalid UID. Please enter numbers only.")
			return
		}
		b.sessions.awaitVisitCount(chatID, input)
		b.reply(msg, "✅ Now enter the number of visits you want to send:")

	case AwaitingVisitCount:
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 {
			b.reply(msg, "❌ Invalid count. Please enter a positive number.")
			return
		}
		b.reply(msg, "⏳ Connecting to server...")
		raw := b.providers.Visits(ctx, visitUID, input)
		b.replyMarkdown(msg, "✅ *Visits Sent Successfully\\!*\n\n📄 *RAW DATA:*\n"+EscapeMarkdownV2(CleanResponse(raw)))
		b.sessions.clear(chatID)

	case AwaitingInfoID:
		if !numericRe.MatchString(input) {
			b.reply(msg, "❌ Invalid UID. Please enter numbers only.")
			return
		}
		b.reply(msg, "⏳ Connecting to server...")
		raw := b.providers.PlayerInfo(ctx, input)
		b.replyMarkdown(msg, "*User Info:*\n\n"+EscapeMarkdownV2(CleanResponse(raw)))
		b.sessions.clear(chatID)

	case AwaitingLikesID:
		if !numericRe.MatchString(input) {
			b.reply(msg, "❌ Invalid UID. Please enter numbers only.")
			return
		}
		if !b.markLiked(input) {
			b.reply(msg, "❌ YOU ARE DONE FOR TODAY, TRY TOMORROW.")
			return
		}
		b.reply(msg, "⏳ Connecting to server...")
		raw := b.providers.Likes(ctx, input)
		b.replyMarkdown(msg, "✅ *Likes Sent Successfully\\!*\n\n"+EscapeMarkdownV2(CleanResponse(raw)))
		b.sessions.clear(chatID)

	case AwaitingSearchName:
		b.reply(msg, "⏳ Connecting to server...")
		raw := b.providers.SearchName(ctx, input)
		b.replyMarkdown(msg, "🔍 *Search Results:*\n\n"+EscapeMarkdownV2(CleanResponse(raw)))
		b.sessions.clear(chatID)

	case AwaitingBannedID:
		if !numericRe.MatchString(input) {
			b.reply(msg, "❌ Invalid UID. Please enter numbers only.")
			return
		}
		b.reply(msg, "⏳ Connecting to server...")
		raw := b.providers.IsBanned(ctx, input)
		b.replyMarkdown(msg, "*Banned Check:*\n\n"+EscapeMarkdownV2(CleanResponse(raw)))
		b.sessions.clear(chatID)

	case AwaitingSpamID:
		if !numericRe.MatchString(input) {
			b.reply(msg, "❌ Invalid UID. Please enter numbers only.")
			return
		}
		b.reply(msg, "⏳ Connecting to server...")
		raw := b.providers.SpamFriend(ctx, input)
		b.replyMarkdown(msg, "✅ *Spam Friend Request Sent Successfully\\!*\n\n"+EscapeMarkdownV2(CleanResponse(raw)))
		b.sessions.clear(chatID)
	}
}

// markLiked records a likes delivery for the uid. Returns false when the
// uid was already served. The log is process-local and resets on restart.
func (b *Instance) markLiked(uid string) bool {
	b.likesMu.Lock()
	defer b.likesMu.Unlock()
	if b.likesLog[uid] {
		return false
	}
	b.likesLog[uid] = true
	return true
}

func (b *Instance) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	b.deliver(out)
}

func (b *Instance) replyMarkdown(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	out.ParseMode = tgbotapi.ModeMarkdownV2
	b.deliver(out)
}

func (b *Instance) deliver(out tgbotapi.MessageConfig) {
	if _, err := b.send.Send(out); err != nil {
		b.log.Error("error sending message", "chat_id", out.ChatID, "error", err)
	}
}
