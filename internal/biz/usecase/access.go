package usecase

// AccessGate authorizes chats, users and trigger emojis against the
// whitelists loaded at startup. Pure lookups: absence is a normal false,
// and the gate never probes the platform for unlisted chats.
type AccessGate struct {
	chats  map[string]struct{}
	users  map[string]struct{}
	emojis map[string]struct{}
}

// NewAccessGate creates an access gate from configured whitelists
func NewAccessGate(chats, users, emojis []string) *AccessGate {
	g := &AccessGate{
		chats:  make(map[string]struct{}, len(chats)),
		users:  make(map[string]struct{}, len(users)),
		emojis: make(map[string]struct{}, len(emojis)),
	}
	for _, id := range chats {
		g.chats[id] = struct{}{}
	}
	for _, id := range users {
		g.users[id] = struct{}{}
	}
	for _, e := range emojis {
		g.emojis[e] = struct{}{}
	}
	return g
}

// IsWhitelistedChat reports whether the chat may be observed
func (g *AccessGate) IsWhitelistedChat(chatID string) bool {
	_, ok := g.chats[chatID]
	return ok
}

// IsWhitelistedUser reports whether the user may trigger dispatches
func (g *AccessGate) IsWhitelistedUser(userID string) bool {
	_, ok := g.users[userID]
	return ok
}

// IsTriggerEmoji reports whether the emoji is in the trigger set
func (g *AccessGate) IsTriggerEmoji(emoji string) bool {
	_, ok := g.emojis[emoji]
	return ok
}
