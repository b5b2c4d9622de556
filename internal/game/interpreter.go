package game

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandLine is one parsed line. Verb is case-folded, Arg keeps the
// player's casing with runs of whitespace collapsed.
type CommandLine struct {
	Raw  string
	Verb string
	Arg  string
}

func ParseCommand(raw string) CommandLine {
	raw = strings.TrimSpace(raw)
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return CommandLine{Raw: raw}
	}
	return CommandLine{
		Raw:  raw,
		Verb: strings.ToLower(fields[0]),
		Arg:  strings.Join(fields[1:], " "),
	}
}

// interpret runs one command line. Every outcome, good or bad, is expressed
// as output lines; nothing here returns an error.
func (e *Engine) interpret(s Session, raw string) Session {
	cl := ParseCommand(raw)
	if s.Phase != PhaseRunning || cl.Raw == "" {
		return s
	}
	next := s.clone()
	next.emit(e.prompt + " " + cl.Raw)

	switch cl.Verb {
	case "help":
		next.emit(helpLines(next)...)
	case "challenges":
		listChallenges(&next)
	case "challenge":
		showChallenge(&next, cl.Arg)
	case "submit":
		submit(&next, cl.Arg)
	case "hint":
		e.hint(&next, cl.Arg)
	case "clear":
		next.Output = nil
	case "ls":
		next.emit("", "📁 Directory contents:", "challenges.txt    flags/    README.md", "")
	case "whoami":
		next.emit("reika - CTF participant")
	case "pwd":
		next.emit("/home/reika/ctf")
	default:
		next.emit(
			fmt.Sprintf("❌ Command not found: %s", cl.Verb),
			"💡 Type 'help' for available commands.",
			"",
		)
	}
	return next
}

func helpLines(s Session) []string {
	w := s.Wording
	lines := []string{
		"",
		"Available commands:",
		"  help          - Show this help message",
		"  challenges    - List all challenges",
		fmt.Sprintf("  challenge <n> - View challenge details (1-%d)", s.Total()),
		"  " + w.SubmitUsage,
		"  hint <n>      - Get a hint for challenge n",
		"  clear         - Clear terminal",
	}
	for _, extra := range w.ExtraHelp {
		lines = append(lines, "  "+extra)
	}
	return append(lines, "")
}

func listChallenges(s *Session) {
	s.emit("", "🎯 CTF Challenges:", "")
	for _, ch := range s.Challenges {
		s.emit(fmt.Sprintf("%d. %s - %s", ch.ID, ch.Title, solvedLabel(ch.Completed)))
	}
	s.emit("")
}

func showChallenge(s *Session, arg string) {
	n, ok := challengeNumber(arg, s.Total())
	if !ok {
		s.emit(invalidNumber(s.Total()))
		return
	}
	ch := s.Challenges[n-1]
	s.Selected = n
	status := "🔓 Status: UNSOLVED"
	if ch.Completed {
		status = "✅ Status: SOLVED"
	}
	s.emit(
		"",
		fmt.Sprintf("🎯 Challenge %d: %s", ch.ID, ch.Title),
		"",
		"Description: "+ch.Description,
		"",
		status,
		"",
	)
}

func submit(s *Session, arg string) {
	w := s.Wording
	flag := strings.ToUpper(arg)
	match := -1
	if flag != "" {
		s.Submissions++
		for i, ch := range s.Challenges {
			if !ch.Completed && ch.Flag == flag {
				match = i
				break
			}
		}
	}
	if match < 0 {
		if flag != "" {
			s.WrongSubmissions++
		}
		s.emit(
			"",
			fmt.Sprintf("❌ Incorrect %s or already submitted.", w.Noun),
			"💡 Tip: "+w.Tip,
			"",
		)
		return
	}

	s.Challenges[match].Completed = true
	ch := s.Challenges[match]
	s.emit(
		"",
		fmt.Sprintf("🎉 CORRECT! %s accepted! 🎉", capitalize(w.Noun)),
		fmt.Sprintf("✅ Challenge %d solved: %s", ch.ID, ch.Title),
		fmt.Sprintf("🏆 Progress: %d/%d %s found", s.CompletedCount(), s.Total(), w.NounPlural),
		"",
	)
	checkWin(s)
}

func (e *Engine) hint(s *Session, arg string) {
	n, ok := challengeNumber(arg, s.Total())
	if !ok {
		s.emit(invalidNumber(s.Total()))
		return
	}
	ch := s.Challenges[n-1]
	if ch.Completed {
		s.emit(fmt.Sprintf("💡 Challenge %d is already solved!", n))
		return
	}
	idx := e.rnd.IntN(len(ch.Hints))
	if idx < 0 || idx >= len(ch.Hints) {
		idx = 0
	}
	s.HintsUsed++
	s.emit(
		"",
		fmt.Sprintf("💡 Hint for Challenge %d:", n),
		ch.Hints[idx],
		"",
	)
}

// challengeNumber reads the first token of arg as a 1-based challenge id.
// Anything that is not a plain integer in range is rejected.
func challengeNumber(arg string, total int) (int, bool) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > total {
		return 0, false
	}
	return n, true
}

func invalidNumber(total int) string {
	return fmt.Sprintf("❌ Invalid challenge number. Use 1-%d.", total)
}

func solvedLabel(done bool) string {
	if done {
		return "✅ SOLVED"
	}
	return "🔓 UNSOLVED"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
