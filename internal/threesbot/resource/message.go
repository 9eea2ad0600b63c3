package resource

import (
	"strconv"
	"strings"

	"github.com/enescakir/emoji"
)

var (
	TextOpenChallengeMsg    = emoji.CrossedSwords.String() + " %s opened a Threes challenge, anyone may accept"
	TextDirectChallengeMsg  = emoji.CrossedSwords.String() + " %s challenged %s to Threes"
	TextChallengeExpiredMsg = "The challenge by %s timed out"
	TextGameStartedMsg      = emoji.GameDie.String() + " Game on! %s rolls first"
	TextTurnPromptMsg       = "%s, it is your turn, roll the dice"
	TextRolledMsg           = "%s rolled %s"
	TextKeptMsg             = "%s kept %s, score so far %d"
	TextAutoKeptMsg         = "Single die auto-kept for %s"
	TextNotYourTurnMsg      = "It is not your turn"
	TextTableBusyMsg        = "A game is already running at this table"
	TextMoonShotMsg         = emoji.FullMoon.String() + " MOON SHOT! %s rolled all sixes and wins instantly!"
	TextWinnerMsg           = emoji.Trophy.String() + " %s wins %d to %d"
	TextTieMsg              = "Tie game at %d, rematch?"
	TextRematchStartedMsg   = emoji.CounterclockwiseArrowsButton.String() + " Rematch! %s rolls first"
	TextDrawDeclaredMsg     = "The game ends in a draw"
)

var keycaps = [...]emoji.Emoji{
	emoji.Keycap1,
	emoji.Keycap2,
	emoji.Keycap3,
	emoji.Keycap4,
	emoji.Keycap5,
	emoji.Keycap6,
}

// DiceFaces renders die values as keycap emojis, e.g. [3 5] -> "3️⃣ 5️⃣".
func DiceFaces(values []int) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(" ")
		}
		if v >= 1 && v <= len(keycaps) {
			sb.WriteString(keycaps[v-1].String())
		} else {
			sb.WriteString(strconv.Itoa(v))
		}
	}
	return sb.String()
}
