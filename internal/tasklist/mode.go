package tasklist

// Mode selects which tasks are shown and which actions they offer.
type Mode int

const (
	Normal Mode = iota
	Edit
	Archive
)

func (m Mode) String() string {
	switch m {
	case Edit:
		return "edit"
	case Archive:
		return "archive"
	default:
		return "normal"
	}
}

// Action is something a task row offers in the current mode.
type Action string

const (
	ActionToggleComplete Action = "toggle-complete"
	ActionStart          Action = "start"
	ActionInfo           Action = "info"
	ActionArchive        Action = "archive"
	ActionEdit           Action = "edit"
	ActionDelete         Action = "delete"
	ActionUnarchive      Action = "unarchive"
)

var modeActions = map[Mode][]Action{
	Normal:  {ActionToggleComplete, ActionStart, ActionInfo},
	Edit:    {ActionToggleComplete, ActionArchive, ActionEdit, ActionDelete},
	Archive: {ActionUnarchive, ActionInfo},
}

// showsArchived reports whether the mode lists archived tasks instead of
// live ones.
func (m Mode) showsArchived() bool {
	return m == Archive
}

func (m Mode) offers(a Action) bool {
	for _, x := range modeActions[m] {
		if x == a {
			return true
		}
	}
	return false
}
