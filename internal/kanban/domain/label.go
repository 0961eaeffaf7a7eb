package domain

// LabelType distinguishes Gmail system labels from user labels
type LabelType string

const (
	LabelTypeSystem LabelType = "system"
	LabelTypeUser   LabelType = "user"
)

// Label is one entry of the Gmail label catalog
type Label struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type LabelType `json:"type"`
}

// Gmail system labels the engine touches directly
const (
	LabelInbox   = "INBOX"
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
)

// LabelEffect is the Gmail label change a transition requires
type LabelEffect struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// Empty reports whether the effect changes nothing
func (e LabelEffect) Empty() bool {
	return len(e.Add) == 0 && len(e.Remove) == 0
}
