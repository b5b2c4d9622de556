package ui

type Controller interface {
	OnStart()
	OnRestart()
	OnQuit()
	OnTerminalInput(data []byte)
	OnPaste(content string)
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetBriefing(state BriefingState)
	SetPlayingState(state PlayingState)
	SetResult(state ResultState)
	SetRestartConfirmOpen(open bool)
	SetDrawerOpen(open bool)
	FlashStatus(msg string)
	RequestDraw()
}

type Screen int

const (
	ScreenBriefing Screen = iota
	ScreenPlaying
)

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutCompact
	LayoutTooSmall
)

func (m LayoutMode) String() string {
	switch m {
	case LayoutWide:
		return "wide"
	case LayoutCompact:
		return "compact"
	default:
		return "too_small"
	}
}

type BriefingState struct {
	Title    string
	Markdown string
	Best     string
}

type PlayingState struct {
	CatalogID   string
	CatalogName string
	Clock       string
	Duration    int
	Remaining   int
	Running     bool
	Completed   int
	Total       int
	Score       int
	HintsUsed   int
	NounPlural  string
	Challenges  []ChallengeRow
	Tips        []string
}

type ChallengeRow struct {
	ID     int
	Title  string
	Solved bool
}

type ResultState struct {
	Visible    bool
	Won        bool
	Completed  int
	Total      int
	Clock      string
	Score      int
	HintsUsed  int
	NounPlural string
}
