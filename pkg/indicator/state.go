package indicator

// State is a snapshot of the keyboard layout groups. An empty name marks an
// undefined group slot.
type State struct {
	Group int
	Names []string
}

func (s State) Name() string {
	return s.nameAt(s.Group)
}

func (s State) nameAt(idx int) string {
	if idx < 0 || idx >= len(s.Names) {
		return ""
	}
	return s.Names[idx]
}

// Next returns the group a click should lock: the following slot if it has a
// name, group 0 otherwise.
func (s State) Next() int {
	if s.nameAt(s.Group+1) != "" {
		return s.Group + 1
	}
	return 0
}

// Prev returns the previous defined group, wrapping to the last defined one.
func (s State) Prev() int {
	if s.Group > 0 && s.nameAt(s.Group-1) != "" {
		return s.Group - 1
	}

	last := 0
	for i := range s.Names {
		if s.Names[i] == "" {
			break
		}
		last = i
	}
	return last
}

// Index returns the slot holding name, or -1.
func (s State) Index(name string) int {
	if name == "" {
		return -1
	}
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// FirstRunes returns a LabelFunc cutting names to their first n runes.
func FirstRunes(n int) LabelFunc {
	return func(name string) string {
		runes := []rune(name)
		if len(runes) > n {
			runes = runes[:n]
		}
		return string(runes)
	}
}
