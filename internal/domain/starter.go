package domain

type StarterCategory string

const (
	StarterGreeting  StarterCategory = "greeting"
	StarterQuestion  StarterCategory = "question"
	StarterReligious StarterCategory = "religious"
	StarterGeneral   StarterCategory = "general"
)

func (c StarterCategory) Valid() bool {
	switch c {
	case StarterGreeting, StarterQuestion, StarterReligious, StarterGeneral:
		return true
	}
	return false
}

type ConversationStarter struct {
	Text     string          `json:"text"`
	Category StarterCategory `json:"category"`
}

type StarterCounterpart struct {
	DisplayName string `json:"display_name"`
	Status      string `json:"status,omitempty"`
	IsScholar   bool   `json:"is_scholar"`
}

// StarterContext is what the text generator sees.
type StarterContext struct {
	Requester      *User              `json:"requester"`
	Counterpart    StarterCounterpart `json:"counterpart"`
	RecentMessages []*Message         `json:"recent_messages"`
}

// FallbackStarters is the static list served when the generator fails.
type FallbackStarters struct {
	Common  []ConversationStarter `json:"common"`
	Scholar []ConversationStarter `json:"scholar"`
	Regular []ConversationStarter `json:"regular"`
}

func (f FallbackStarters) For(isScholar bool) []ConversationStarter {
	out := make([]ConversationStarter, 0, len(f.Common)+2)
	out = append(out, f.Common...)
	if isScholar {
		return append(out, f.Scholar...)
	}
	return append(out, f.Regular...)
}

var DefaultFallbackStarters = FallbackStarters{
	Common: []ConversationStarter{
		{Text: "Assalamu alaikum, how are you today?", Category: StarterGreeting},
		{Text: "Hope you're having a blessed day!", Category: StarterGreeting},
		{Text: "What have you been up to lately?", Category: StarterGeneral},
	},
	Scholar: []ConversationStarter{
		{Text: "I had a question about Islamic jurisprudence if you have time.", Category: StarterReligious},
		{Text: "Could you recommend some good books on Islamic theology?", Category: StarterQuestion},
	},
	Regular: []ConversationStarter{
		{Text: "Would you like to meet up sometime this week?", Category: StarterQuestion},
		{Text: "Have you heard about the new community event?", Category: StarterGeneral},
	},
}
