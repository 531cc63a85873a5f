package pin

// Entry is the state of the four-cell digit input.
type Entry struct {
	cells [Length]rune
	focus int
}

// Type puts a digit in the focused cell and moves focus right. Non-digits
// are ignored; the last cell keeps focus.
func (e *Entry) Type(r rune) {
	if r < '0' || r > '9' {
		return
	}
	e.cells[e.focus] = r
	if e.focus < Length-1 {
		e.focus++
	}
}

// Backspace clears the focused cell. On an empty cell it moves focus left
// and clears that cell instead.
func (e *Entry) Backspace() {
	if e.cells[e.focus] != 0 {
		e.cells[e.focus] = 0
		return
	}
	if e.focus > 0 {
		e.focus--
		e.cells[e.focus] = 0
	}
}

// Focus moves focus to cell i (0-based).
func (e *Entry) Focus(i int) {
	if i >= 0 && i < Length {
		e.focus = i
	}
}

func (e *Entry) Focused() int { return e.focus }

func (e *Entry) Cell(i int) rune { return e.cells[i] }

// Complete reports whether all four cells hold a digit.
func (e *Entry) Complete() bool {
	for _, c := range e.cells {
		if c == 0 {
			return false
		}
	}
	return true
}

// Value returns the digits typed so far, skipping empty cells.
func (e *Entry) Value() string {
	out := make([]rune, 0, Length)
	for _, c := range e.cells {
		if c != 0 {
			out = append(out, c)
		}
	}
	return string(out)
}

func (e *Entry) Clear() {
	*e = Entry{}
}
