package bot

// action is a menu-driven premium or informational action. Dispatch is by
// exhaustive switch; unrecognized text never falls through to an action.
type action int

const (
	actionCheckInfo action = iota
	actionLikes
	actionSendVisit
	actionSearchByName
	actionCheckBanned
	actionSpamFriend
	actionBalance
	actionReferral
	actionOwner
	actionBonus
)

// Menu labels sent with the reply keyboard and matched on inbound text.
const (
	labelCheckInfo    = "ℹ️ CHECK INFO"
	labelLikes        = "❤️ LIKES"
	labelSendVisit    = "👀 SEND VISIT"
	labelSearchByName = "🔍 SEARCH BY NAME"
	labelCheckBanned  = "🚫 CHECK BANNED"
	labelSpamFriend   = "🤝 SPAM FRIEND REQUEST"
	labelBalance      = "💰 BALANCE"
	labelReferral     = "🔗 REFERRAL"
	labelOwner        = "👤 OWNER"
	labelBonus        = "🎁 BONUS"
)

// Fixed point costs of the premium actions. Likes and the ban check are
// free.
const (
	costCheckInfo    = 20
	costSendVisit    = 50
	costSearchByName = 10
	costSpamFriend   = 30
)

// ReferralAward is credited to the referrer when a new user starts the bot
// through their link.
const ReferralAward = 50

func parseAction(text string) (action, bool) {
	switch text {
	case labelCheckInfo:
		return actionCheckInfo, true
	case labelLikes:
		return actionLikes, true
	case labelSendVisit:
		return actionSendVisit, true
	case labelSearchByName:
		return actionSearchByName, true
	case labelCheckBanned:
		return actionCheckBanned, true
	case labelSpamFriend:
		return actionSpamFriend, true
	case labelBalance:
		return actionBalance, true
	case labelReferral:
		return actionReferral, true
	case labelOwner:
		return actionOwner, true
	case labelBonus:
		return actionBonus, true
	}
	return 0, false
}

func (a action) cost() int64 {
	switch a {
	case actionCheckInfo:
		return costCheckInfo
	case actionSendVisit:
		return costSendVisit
	case actionSearchByName:
		return costSearchByName
	case actionSpamFriend:
		return costSpamFriend
	}
	return 0
}

func (a action) label() string {
	switch a {
	case actionCheckInfo:
		return "CHECK INFO"
	case actionLikes:
		return "LIKES"
	case actionSendVisit:
		return "SEND VISIT"
	case actionSearchByName:
		return "SEARCH BY NAME"
	case actionCheckBanned:
		return "CHECK BANNED"
	case actionSpamFriend:
		return "SPAM FRIEND REQUEST"
	case actionBalance:
		return "BALANCE"
	case actionReferral:
		return "REFERRAL"
	case actionOwner:
		return "OWNER"
	case actionBonus:
		return "BONUS"
	}
	return ""
}

// awaitState maps a premium action to the pending-input state it opens.
func (a action) awaitState() State {
	switch a {
	case actionCheckInfo:
		return AwaitingInfoID
	case actionLikes:
		return AwaitingLikesID
	case actionSendVisit:
		return AwaitingVisitID
	case actionSearchByName:
		return AwaitingSearchName
	case actionCheckBanned:
		return AwaitingBannedID
	case actionSpamFriend:
		return AwaitingSpamID
	}
	return Idle
}

// prompt is the reply asking for the action's follow-up input.
func (a action) prompt() string {
	switch a {
	case actionCheckInfo:
		return "Please enter your game ID:"
	case actionLikes:
		return "Please enter your game ID to receive likes:"
	case actionSendVisit:
		return "Please enter your game ID to send visits:"
	case actionSearchByName:
		return "Please enter the name to search for:"
	case actionCheckBanned:
		return "Please enter your game ID to check banned status:"
	case actionSpamFriend:
		return "Please enter your game ID to spam friend request:"
	}
	return ""
}
