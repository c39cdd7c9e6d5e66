package domain

// Button is a pressable action: a label and the encoded action token it carries.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Row is an ordered group of buttons rendered side by side.
type Row []Button

// Menu is an ordered sequence of rows.
type Menu struct {
	Rows []Row `json:"rows"`
}

// Buttons returns every button in render order.
func (m *Menu) Buttons() []Button {
	if m == nil {
		return nil
	}
	var out []Button
	for _, row := range m.Rows {
		out = append(out, row...)
	}
	return out
}

// Clone returns a deep copy of the menu.
func (m *Menu) Clone() *Menu {
	if m == nil {
		return nil
	}
	rows := make([]Row, len(m.Rows))
	for i, row := range m.Rows {
		rows[i] = append(Row(nil), row...)
	}
	return &Menu{Rows: rows}
}

// Screen is what a user sees for one turn: text plus an optional menu.
type Screen struct {
	Text string `json:"text"`
	Menu *Menu  `json:"menu,omitempty"`
}

// Clone returns a deep copy of the screen.
func (s *Screen) Clone() *Screen {
	if s == nil {
		return nil
	}
	return &Screen{Text: s.Text, Menu: s.Menu.Clone()}
}
