package model

// Strategy is the quick-reply strategy chosen for a turn.
type Strategy string

const (
	StrategyContextual Strategy = "contextual"
	StrategyFollowUp   Strategy = "followup"
	StrategySmart      Strategy = "smart"
	StrategyGeneral    Strategy = "general"
	StrategyWelcome    Strategy = "welcome"
	StrategyNone       Strategy = "none"
)

// QuickReplyOption is one tappable suggestion.
type QuickReplyOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// QuickReplySet is the suggestion set sent after a primary reply.
type QuickReplySet struct {
	Strategy   Strategy           `json:"strategy"`
	Category   string             `json:"category,omitempty"`
	PromptText string             `json:"prompt_text"`
	Options    []QuickReplyOption `json:"options"`
}
