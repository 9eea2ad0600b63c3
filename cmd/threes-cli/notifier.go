package main

import (
	"fmt"

	"github.com/threes-games/threes/internal/threesbot/match"
	"github.com/threes-games/threes/internal/threesbot/resource"
)

// termNotifier renders session events at the terminal. Notify is only
// called from the session's sending worker, so the score bookkeeping
// needs no locking.
type termNotifier struct {
	names  map[int64]string
	scores map[int64]int
}

func newTermNotifier(names map[int64]string) *termNotifier {
	return &termNotifier{names: names, scores: map[int64]int{}}
}

func (t *termNotifier) name(id int64) string {
	if name, ok := t.names[id]; ok {
		return name
	}
	return fmt.Sprintf("player %d", id)
}

func (t *termNotifier) other(id int64) string {
	for known := range t.names {
		if known != id {
			return t.name(known)
		}
	}
	return "?"
}

func (t *termNotifier) Notify(event match.Event) error {
	switch event.Kind {
	case match.EventChallengeIssued:
		fmt.Printf(resource.TextOpenChallengeMsg+"\n", t.name(event.Actor))
	case match.EventChallengeAccepted:
		t.scores = map[int64]int{}
		fmt.Printf(resource.TextGameStartedMsg+"\n", t.other(event.Actor))
	case match.EventChallengeExpired:
		fmt.Printf(resource.TextChallengeExpiredMsg+"\n", t.name(event.Actor))
	case match.EventRolled:
		fmt.Printf(resource.TextRolledMsg+"\n", t.name(event.Actor), resource.DiceFaces(event.Values))
	case match.EventKept:
		t.scores[event.Actor] = event.Score
		fmt.Printf(resource.TextKeptMsg+"\n", t.name(event.Actor), resource.DiceFaces(event.Values), event.Score)
	case match.EventAutoKept:
		t.scores[event.Actor] = event.Score
		fmt.Printf(resource.TextAutoKeptMsg+"\n", t.name(event.Actor))
		fmt.Printf(resource.TextKeptMsg+"\n", t.name(event.Actor), resource.DiceFaces(event.Values), event.Score)
	case match.EventTurnPrompt:
		fmt.Printf(resource.TextTurnPromptMsg+"\n", t.name(event.Actor))
	case match.EventFinished:
		t.printOutcome(event)
	case match.EventRematchOffered:
		fmt.Printf(resource.TextTieMsg+"\n", t.tieScore())
	case match.EventRematchStarted:
		t.scores = map[int64]int{}
		fmt.Printf(resource.TextRematchStartedMsg+"\n", t.name(event.Actor))
	case match.EventDrawDeclared:
		fmt.Println(resource.TextDrawDeclaredMsg)
	}
	return nil
}

// tieScore picks either recorded score; on a tie they are equal.
func (t *termNotifier) tieScore() int {
	for _, score := range t.scores {
		return score
	}
	return 0
}

func (t *termNotifier) printOutcome(event match.Event) {
	outcome := event.Outcome
	if outcome.MoonShot {
		fmt.Printf(resource.TextMoonShotMsg+"\n", t.name(outcome.Winner))
		return
	}
	if outcome.IsTie {
		return
	}
	fmt.Printf(
		resource.TextWinnerMsg+"\n",
		t.name(outcome.Winner),
		t.scores[outcome.Winner],
		t.scores[outcome.Loser],
	)
}
