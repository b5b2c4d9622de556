package ui

import (
	"fmt"

	"ctfdojo/internal/term"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	if key.Matches(msg, r.keymap.Quit) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}
	if r.screen == ScreenBriefing {
		return r.handleBriefingKey(msg)
	}
	return r.handlePlayingKey(msg)
}

func (r *Root) handleBriefingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.Code {
	case tea.KeyEnter, tea.KeySpace:
		r.dispatchController(func(c Controller) { c.OnStart() })
		return r, nil
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if msg.Mod == 0 && (msg.Code == 'q' || msg.Code == 'Q') {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	var cmd tea.Cmd
	r.briefingView, cmd = r.briefingView.Update(msg)
	return r, cmd
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch r.topOverlay() {
	case "confirm":
		switch msg.Code {
		case tea.KeyEsc:
			r.confirmOpen = false
		case tea.KeyLeft, tea.KeyUp:
			r.confirmIndex = 0
		case tea.KeyRight, tea.KeyDown, tea.KeyTab:
			r.confirmIndex = 1
		case tea.KeyEnter:
			r.activateConfirm(r.confirmIndex)
		}
		if msg.Mod == 0 && (msg.Code == 'y' || msg.Code == 'Y') {
			r.activateConfirm(1)
		}
		if msg.Mod == 0 && (msg.Code == 'n' || msg.Code == 'N' || msg.Code == 'q') {
			r.confirmOpen = false
		}
	case "result":
		buttons := r.resultButtons()
		switch msg.Code {
		case tea.KeyUp, tea.KeyLeft:
			r.resultIndex = wrapIndex(r.resultIndex-1, len(buttons))
		case tea.KeyDown, tea.KeyRight, tea.KeyTab:
			r.resultIndex = wrapIndex(r.resultIndex+1, len(buttons))
		case tea.KeyEnter:
			r.activateResultButton(r.resultIndex)
		}
		if msg.Mod == 0 && (msg.Code == 'q' || msg.Code == 'Q') {
			r.dispatchController(func(c Controller) { c.OnQuit() })
		}
		if msg.Mod == 0 && (msg.Code == 'r' || msg.Code == 'R') {
			r.activateResultButton(0)
		}
		if msg.Mod&tea.ModCtrl != 0 && (msg.Code == 'c' || msg.Code == 'C') {
			r.statusFlash = "Copied results"
			return r, tea.SetClipboard(r.resultText())
		}
	}
	return r, nil
}

func (r *Root) activateConfirm(index int) {
	r.confirmOpen = false
	r.confirmIndex = 0
	if index == 1 {
		r.dispatchController(func(c Controller) { c.OnRestart() })
	}
}

func (r *Root) activateResultButton(index int) {
	switch index {
	case 0:
		r.dispatchController(func(c Controller) { c.OnRestart() })
	case 1:
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
}

func (r *Root) handlePlayingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if (msg.Code == tea.KeyInsert && msg.Mod&tea.ModShift != 0) ||
		((msg.Code == 'v' || msg.Code == 'V') && msg.Mod&tea.ModCtrl != 0 && msg.Mod&tea.ModShift != 0) {
		return r, func() tea.Msg { return tea.ReadClipboard() }
	}

	switch msg.Code {
	case tea.KeyF1:
		r.help.ShowAll = !r.help.ShowAll
		return r, nil
	case tea.KeyF2:
		r.drawerOpen = !r.drawerOpen
		if r.motionLevel == "off" {
			r.drawerPos = r.drawerTarget()
		}
		return r, r.animateIfNeeded()
	case tea.KeyF6:
		if r.state.Running {
			r.confirmOpen = true
			r.confirmIndex = 0
		}
		return r, nil
	case tea.KeyF9:
		if r.pane != nil {
			r.pane.ToggleScrollback()
		}
		return r, nil
	case tea.KeyEsc:
		if r.drawerOpen {
			r.drawerOpen = false
			return r, r.animateIfNeeded()
		}
		if r.pane != nil && r.pane.InScrollback() {
			r.pane.ToggleScrollback()
			return r, nil
		}
	}

	if r.pane != nil {
		// Console scroll deltas count lines back from the newest output.
		if msg.Code == tea.KeyPgUp && msg.Mod&tea.ModShift != 0 {
			r.scrollPane(10)
			return r, nil
		}
		if msg.Code == tea.KeyPgDown && msg.Mod&tea.ModShift != 0 {
			r.scrollPane(-10)
			return r, nil
		}
		if r.pane.InScrollback() {
			switch msg.Code {
			case tea.KeyUp:
				r.pane.Scroll(1)
				return r, nil
			case tea.KeyDown:
				r.pane.Scroll(-1)
				return r, nil
			case tea.KeyPgUp:
				r.pane.Scroll(10)
				return r, nil
			case tea.KeyPgDown:
				r.pane.Scroll(-10)
				return r, nil
			}
		}
	}

	if data := term.EncodeKeyPress(msg); len(data) > 0 {
		r.dispatchController(func(c Controller) { c.OnTerminalInput(data) })
	}
	return r, nil
}

func (r *Root) scrollPane(delta int) {
	if !r.pane.InScrollback() {
		r.pane.ToggleScrollback()
	}
	r.pane.Scroll(delta)
}

func (r *Root) handlePaste(msg tea.PasteMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))

	if r.screen != ScreenPlaying || r.overlayActive() || msg.Content == "" {
		return r, nil
	}
	if r.pane != nil && r.pane.InScrollback() {
		r.pane.ToggleScrollback()
	}
	content := msg.Content
	r.dispatchController(func(c Controller) { c.OnPaste(content) })
	return r, nil
}

func (r *Root) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	r.recordInputEvent(fmt.Sprintf("mouse_click:%d,%d button:%v", mouse.X, mouse.Y, mouse.Button))

	if r.mouseScope == "off" || mouse.Button != tea.MouseLeft {
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayMouseClick(mouse.X, mouse.Y)
	}
	return r, nil
}

func (r *Root) handleOverlayMouseClick(x, y int) (tea.Model, tea.Cmd) {
	top := r.topOverlay()
	spec, ok := r.overlaySpec(top)
	if !ok {
		return r, nil
	}
	if x < spec.startCol+1 || x >= spec.startCol+spec.width-1 || y < spec.startRow+1 || y >= spec.startRow+spec.height-1 {
		return r, nil
	}
	row := y - (spec.startRow + 1) - spec.actionRow
	if row < 0 || row >= len(spec.actions) {
		return r, nil
	}
	switch top {
	case "confirm":
		r.confirmIndex = row
		r.activateConfirm(row)
	case "result":
		r.resultIndex = row
		r.activateResultButton(row)
	}
	return r, nil
}

func (r *Root) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	r.recordInputEvent(fmt.Sprintf("mouse_wheel:%d,%d button:%v", mouse.X, mouse.Y, mouse.Button))

	if r.mouseScope == "off" {
		return r, nil
	}
	delta := 0
	switch mouse.Button {
	case tea.MouseWheelUp:
		delta = 1
	case tea.MouseWheelDown:
		delta = -1
	}
	if delta == 0 {
		return r, nil
	}

	if r.screen == ScreenBriefing {
		if delta > 0 {
			r.briefingView.ScrollUp(3)
		} else {
			r.briefingView.ScrollDown(3)
		}
		return r, nil
	}
	if r.pane != nil && !r.overlayActive() && (r.mouseScope == "full" || r.pane.InScrollback()) {
		r.scrollPane(delta * 3)
	}
	return r, nil
}
