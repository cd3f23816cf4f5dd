package bot

import "sync"

// State enumerates which follow-up input a chat is waiting for.
type State int

const (
	Idle State = iota
	AwaitingInfoID
	AwaitingLikesID
	AwaitingVisitID
	AwaitingVisitCount
	AwaitingSearchName
	AwaitingBannedID
	AwaitingSpamID
)

// Session is the transient conversational state of one chat. VisitUID is
// scratch for the two-step visit flow: the game id entered in
// AwaitingVisitID, pending the count.
type Session struct {
	ChatID   int64
	Awaiting State
	VisitUID string
}

// sessionManager owns all sessions of one bot instance. Sessions are
// created on the first state-changing action and dropped when a flow
// completes; an abandoned session persists until the next trigger
// overwrites it.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[int64]*Session)}
}

// state returns the chat's pending state and visit scratch.
func (m *sessionManager) state(chatID int64) (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return Idle, ""
	}
	return s.Awaiting, s.VisitUID
}

// await moves the chat into the given pending state, discarding scratch.
func (m *sessionManager) await(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = &Session{ChatID: chatID, Awaiting: st}
}

// awaitVisitCount stores the validated visit uid and advances to the
// count step.
func (m *sessionManager) awaitVisitCount(chatID int64, uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = &Session{ChatID: chatID, Awaiting: AwaitingVisitCount, VisitUID: uid}
}

// clear returns the chat to Idle.
func (m *sessionManager) clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
