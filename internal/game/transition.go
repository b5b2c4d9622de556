package game

// Transition summarises what one Reduce call changed, so owners can react
// to phase edges without re-deriving them.
type Transition struct {
	Started   bool
	Ended     bool
	Restarted bool
	// Abandoned is a restart that interrupted a running round.
	Abandoned bool
	Submitted bool
	Correct   bool
	// Solved is the id of the challenge completed by this step, or 0.
	Solved int
}

func Diff(prev, next Session) Transition {
	t := Transition{
		Started:   prev.Phase == PhaseNotStarted && next.Phase == PhaseRunning,
		Ended:     prev.Phase == PhaseRunning && next.Phase == PhaseOver,
		Restarted: prev.Phase != PhaseNotStarted && next.Phase == PhaseNotStarted,
		Submitted: next.Submissions > prev.Submissions,
	}
	t.Abandoned = t.Restarted && prev.Phase == PhaseRunning
	if t.Restarted {
		return t
	}
	for i := range next.Challenges {
		if i < len(prev.Challenges) && !prev.Challenges[i].Completed && next.Challenges[i].Completed {
			t.Solved = next.Challenges[i].ID
			t.Correct = true
			break
		}
	}
	return t
}
