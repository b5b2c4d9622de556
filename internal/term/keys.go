package term

import (
	"fmt"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"
)

// EncodeKeyPress turns a Bubble Tea key press into the xterm byte sequence
// the console's line editor understands. Keys the console has no use for
// encode to nil.
func EncodeKeyPress(ev tea.KeyPressMsg) []byte {
	key := ev.Key()
	if key.Text != "" {
		if key.Mod&tea.ModAlt != 0 {
			return append([]byte{0x1b}, key.Text...)
		}
		return []byte(key.Text)
	}

	switch key.Code {
	case tea.KeyEscape:
		return []byte{0x1b}
	case tea.KeyEnter:
		return []byte("\r")
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyUp:
		return csi("A", key.Mod)
	case tea.KeyDown:
		return csi("B", key.Mod)
	case tea.KeyRight:
		return csi("C", key.Mod)
	case tea.KeyLeft:
		return csi("D", key.Mod)
	case tea.KeyHome:
		return csi("H", key.Mod)
	case tea.KeyEnd:
		return csi("F", key.Mod)
	case tea.KeyPgUp:
		return tilde(5, key.Mod)
	case tea.KeyPgDown:
		return tilde(6, key.Mod)
	case tea.KeyDelete:
		return tilde(3, key.Mod)
	}

	if key.Mod&tea.ModCtrl != 0 && key.Code != 0 && utf8.ValidRune(key.Code) {
		if c := ctrlCode(key.Code); c != 0 {
			return []byte{c}
		}
	}
	return nil
}

func csi(final string, mods tea.KeyMod) []byte {
	if m := xtermModifier(mods); m != 1 {
		return []byte(fmt.Sprintf("\x1b[1;%d%s", m, final))
	}
	return []byte("\x1b[" + final)
}

func tilde(n int, mods tea.KeyMod) []byte {
	if m := xtermModifier(mods); m != 1 {
		return []byte(fmt.Sprintf("\x1b[%d;%d~", n, m))
	}
	return []byte(fmt.Sprintf("\x1b[%d~", n))
}

func xtermModifier(mods tea.KeyMod) int {
	m := 1
	if mods&tea.ModShift != 0 {
		m++
	}
	if mods&tea.ModAlt != 0 {
		m += 2
	}
	if mods&tea.ModCtrl != 0 {
		m += 4
	}
	return m
}

func ctrlCode(r rune) byte {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 1
	case r >= 'A' && r <= 'Z':
		return byte(r-'A') + 1
	}
	return 0
}
