package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/threes-games/threes/internal/logging"
	"github.com/threes-games/threes/internal/threesbot/game"
	"github.com/valyala/fastrand"
)

const (
	StageKindChallenge uint8 = iota + 1
	StageKindPlaying
	StageKindRematch
	StageKindFinished
)

var (
	ErrSessionClosed = fmt.Errorf("session closed")
	ErrWrongStage    = fmt.Errorf("action not valid in this stage")
	ErrNotYourTurn   = fmt.Errorf("not your turn")
	ErrNotAPlayer    = fmt.Errorf("not a player at this table")
	ErrOwnChallenge  = fmt.Errorf("can not accept your own challenge")
	ErrNothingToRoll = fmt.Errorf("nothing to roll")
	ErrKeepPending   = fmt.Errorf("a roll is awaiting a keep decision")
	ErrInvalidKeep   = fmt.Errorf("invalid keep selection")
)

const (
	actionAccept uint8 = iota + 1
	actionRoll
	actionKeep
	actionRematch
	actionDecline
)

const (
	botStepIdle uint8 = iota
	botStepRoll
	botStepKeep
)

type action struct {
	kind    uint8
	user    int64
	indices []int
	resp    chan actionResult
}

type actionResult struct {
	values []int
	err    error
}

func NewSession(config Config) *Session {
	r := &Session{
		Config:    config,
		Code:      config.Code,
		actionCh:  make(chan action),
		eventCh:   make(chan Event, 32),
		CreatedAt: time.Now(),
	}

	if config.Opponent != 0 {
		// direct challenge, play starts immediately
		r.game = game.New(config.Challenger, config.Opponent, config.Dice)
		r.stage = StageKindPlaying
	} else {
		r.stage = StageKindChallenge
	}

	return r
}

// Session orchestrates one table: it owns the game instance, serializes
// every mutation through its loop goroutine and drives timers for the
// challenge, auto-confirm and rematch windows as well as the automated
// opponent.
type Session struct {
	Config Config

	Code      int64
	CreatedAt time.Time

	mtx   sync.RWMutex
	game  *game.Game
	stage uint8

	actionCh chan action
	eventCh  chan Event
	loopCtx  context.Context

	// loop-owned, never touched outside it
	challengeTimer *time.Timer
	confirmTimer   *time.Timer
	rematchTimer   *time.Timer
	botTimer       *time.Timer
	botStep        uint8

	cancel   context.CancelFunc
	sema     sync.Once
	doneOnce sync.Once
}

func (r *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	logger := logging.FromContext(ctx)
	r.sema.Do(func() {
		r.mtx.Lock()
		r.loopCtx = ctx
		r.mtx.Unlock()
		go r.loop(ctx)
		go r.sendingWorker(ctx)
	})
	logger.Infof("table session created, code: %d, challenger: %d", r.Code, r.Config.Challenger)
}

func (r *Session) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Session) Stage() uint8 {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.stage
}

// Players returns the seats once a game exists; before acceptance only
// the challenger seat is known.
func (r *Session) Players() [2]int64 {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.game == nil {
		return [2]int64{r.Config.Challenger, 0}
	}
	return r.game.Players()
}

func (r *Session) CurrentPlayer() int64 {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.game == nil {
		return 0
	}
	return r.game.CurrentPlayer()
}

// Outcome is meaningful once the game has finished.
func (r *Session) Outcome() game.Outcome {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.game == nil {
		return game.Outcome{}
	}
	return r.game.Outcome()
}

// GameState returns a copy of one player's dice for rendering.
func (r *Session) GameState(player int64) game.PlayerState {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.game == nil {
		return game.PlayerState{}
	}
	return r.game.State(player)
}

// Accept seats userID as the opponent of an open challenge.
func (r *Session) Accept(userID int64) error {
	_, err := r.do(action{kind: actionAccept, user: userID})
	return err
}

// Roll rolls the current player's remaining dice and returns the values.
func (r *Session) Roll(userID int64) ([]int, error) {
	res, err := r.do(action{kind: actionRoll, user: userID})
	return res, err
}

// Keep commits the dice at the given roll indices for the current player.
func (r *Session) Keep(userID int64, indices []int) error {
	_, err := r.do(action{kind: actionKeep, user: userID, indices: indices})
	return err
}

// Rematch restarts a tied game with the same seats.
func (r *Session) Rematch(userID int64) error {
	_, err := r.do(action{kind: actionRematch, user: userID})
	return err
}

// Decline refuses the rematch offer; the tie stands as a draw.
func (r *Session) Decline(userID int64) error {
	_, err := r.do(action{kind: actionDecline, user: userID})
	return err
}

func (r *Session) do(act action) ([]int, error) {
	act.resp = make(chan actionResult, 1)

	r.mtx.RLock()
	closed := r.stage == StageKindFinished || r.loopCtx == nil
	r.mtx.RUnlock()
	if closed {
		return nil, ErrSessionClosed
	}

	select {
	case r.actionCh <- act:
	case <-r.closedCh():
		return nil, ErrSessionClosed
	}

	// the loop replies before it observes cancellation, so prefer a
	// delivered reply over the closed signal
	select {
	case res := <-act.resp:
		return res.values, res.err
	case <-r.closedCh():
		select {
		case res := <-act.resp:
			return res.values, res.err
		default:
			return nil, ErrSessionClosed
		}
	}
}

// closedCh exposes loop-context cancellation to callers blocked in do.
func (r *Session) closedCh() <-chan struct{} {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.loopCtx == nil {
		return nil
	}
	return r.loopCtx.Done()
}

func (r *Session) loop(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("match.loop")
	defer r.shutdown(ctx)

	if r.Stage() == StageKindPlaying {
		r.emit(Event{Kind: EventChallengeAccepted, Code: r.Code, Actor: r.Config.Opponent})
		r.promptNext()
	} else {
		r.challengeTimer = time.NewTimer(r.Config.ChallengeTimeout)
		r.emit(Event{Kind: EventChallengeIssued, Code: r.Code, Actor: r.Config.Challenger})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case act := <-r.actionCh:
			act.resp <- r.handleAction(act)
			if r.Stage() == StageKindFinished {
				return
			}
		case <-timerC(r.challengeTimer):
			r.challengeTimer = nil
			logger.Infof("challenge window expired, code: %d", r.Code)
			r.emit(Event{Kind: EventChallengeExpired, Code: r.Code, Actor: r.Config.Challenger})
			r.conclude(game.Outcome{})
			return
		case <-timerC(r.confirmTimer):
			r.confirmTimer = nil
			r.autoKeep()
			if r.Stage() == StageKindFinished {
				return
			}
		case <-timerC(r.rematchTimer):
			r.rematchTimer = nil
			logger.Infof("rematch window expired, code: %d", r.Code)
			r.emit(Event{Kind: EventDrawDeclared, Code: r.Code})
			r.conclude(game.Outcome{IsTie: true})
			return
		case <-timerC(r.botTimer):
			r.botTimer = nil
			r.botTurn()
			if r.Stage() == StageKindFinished {
				return
			}
		}
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (r *Session) shutdown(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("match.shutdown")
	stopTimer(r.challengeTimer)
	stopTimer(r.confirmTimer)
	stopTimer(r.rematchTimer)
	stopTimer(r.botTimer)
	r.setStage(StageKindFinished)
	r.cancel()
	logger.Infof("table session closed, code: %d", r.Code)
}

func (r *Session) setStage(stage uint8) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.stage = stage
}

func (r *Session) handleAction(act action) actionResult {
	switch act.kind {
	case actionAccept:
		return actionResult{err: r.handleAccept(act.user)}
	case actionRoll:
		values, err := r.handleRoll(act.user)
		return actionResult{values: values, err: err}
	case actionKeep:
		return actionResult{err: r.handleKeep(act.user, act.indices)}
	case actionRematch:
		return actionResult{err: r.handleRematch(act.user)}
	case actionDecline:
		return actionResult{err: r.handleDecline(act.user)}
	}
	return actionResult{err: ErrWrongStage}
}

func (r *Session) handleAccept(userID int64) error {
	if r.Stage() != StageKindChallenge {
		return ErrWrongStage
	}
	if userID == r.Config.Challenger {
		return ErrOwnChallenge
	}

	stopTimer(r.challengeTimer)
	r.challengeTimer = nil
	r.startGame(r.Config.Challenger, userID)
	return nil
}

func (r *Session) startGame(playerA, playerB int64) {
	r.mtx.Lock()
	r.game = game.New(playerA, playerB, r.Config.Dice)
	r.stage = StageKindPlaying
	r.mtx.Unlock()

	r.emit(Event{Kind: EventChallengeAccepted, Code: r.Code, Actor: playerB})
	r.promptNext()
}

// promptNext hands control to whoever moves next: the automated
// opponent gets a scheduled wake-up, a human gets a turn prompt.
func (r *Session) promptNext() {
	next := r.CurrentPlayer()
	if r.isBot(next) {
		r.scheduleBot(botStepRoll)
		return
	}
	r.emit(Event{Kind: EventTurnPrompt, Code: r.Code, Actor: next})
}

func (r *Session) isBot(player int64) bool {
	return r.Config.BotID != 0 && player == r.Config.BotID
}

func (r *Session) handleRoll(userID int64) ([]int, error) {
	if r.Stage() != StageKindPlaying {
		return nil, ErrWrongStage
	}
	if userID != r.CurrentPlayer() || r.isBot(userID) {
		return nil, ErrNotYourTurn
	}
	if len(r.GameState(userID).CurrentRoll) > 0 {
		return nil, ErrKeepPending
	}

	r.mtx.Lock()
	values := r.game.Roll()
	moonShot := r.game.MoonShot()
	r.mtx.Unlock()

	if moonShot {
		r.finishGame()
		return nil, nil
	}
	if len(values) == 0 {
		return nil, ErrNothingToRoll
	}

	r.emit(Event{Kind: EventRolled, Code: r.Code, Actor: userID, Values: values})

	// a roll leaving a single die to keep auto-confirms after a grace
	// window unless the player acts first
	if len(values) == 1 && r.Config.ConfirmTimeout > 0 {
		r.confirmTimer = time.NewTimer(r.Config.ConfirmTimeout)
	}

	return values, nil
}

func (r *Session) handleKeep(userID int64, indices []int) error {
	if r.Stage() != StageKindPlaying {
		return ErrWrongStage
	}
	if userID != r.CurrentPlayer() || r.isBot(userID) {
		return ErrNotYourTurn
	}

	r.mtx.Lock()
	ok := r.game.Keep(indices)
	r.mtx.Unlock()
	if !ok {
		return ErrInvalidKeep
	}

	// the explicit keep won the race, the auto-confirm window is dead
	stopTimer(r.confirmTimer)
	r.confirmTimer = nil

	r.emit(Event{
		Kind:   EventKept,
		Code:   r.Code,
		Actor:  userID,
		Values: r.kept(userID),
		Score:  r.score(userID),
	})
	r.afterKeep()
	return nil
}

// autoKeep fires when the single-die confirm window elapses. The loop
// is the only mutator, so the window and an explicit keep can never
// both commit.
func (r *Session) autoKeep() {
	if r.Stage() != StageKindPlaying {
		return
	}

	player := r.CurrentPlayer()
	r.mtx.Lock()
	ok := len(r.game.State(player).CurrentRoll) == 1 && r.game.Keep([]int{0})
	r.mtx.Unlock()
	if !ok {
		return
	}

	r.emit(Event{
		Kind:   EventAutoKept,
		Code:   r.Code,
		Actor:  player,
		Values: r.kept(player),
		Score:  r.score(player),
	})
	r.afterKeep()
}

func (r *Session) kept(player int64) []int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.game.KeptDice(player)
}

func (r *Session) score(player int64) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.game.Score(player)
}

// afterKeep resolves what happens once a keep committed: game end, a
// rematch offer on a tie, or the next turn.
func (r *Session) afterKeep() {
	r.mtx.RLock()
	finished := r.game.Finished()
	r.mtx.RUnlock()

	if finished {
		r.finishGame()
		return
	}
	r.promptNext()
}

func (r *Session) finishGame() {
	r.mtx.RLock()
	outcome := r.game.Outcome()
	r.mtx.RUnlock()

	r.emit(Event{Kind: EventFinished, Code: r.Code, Actor: outcome.Winner, Outcome: outcome})

	if outcome.IsTie {
		if r.Config.BotID != 0 {
			// the automated opponent never accepts a rematch
			r.emit(Event{Kind: EventDrawDeclared, Code: r.Code})
			r.conclude(outcome)
			return
		}

		r.setStage(StageKindRematch)
		r.rematchTimer = time.NewTimer(r.Config.RematchTimeout)
		r.emit(Event{Kind: EventRematchOffered, Code: r.Code})
		return
	}

	r.conclude(outcome)
}

func (r *Session) handleRematch(userID int64) error {
	if r.Stage() != StageKindRematch {
		return ErrWrongStage
	}
	if !r.isPlayer(userID) {
		return ErrNotAPlayer
	}

	stopTimer(r.rematchTimer)
	r.rematchTimer = nil

	players := r.Players()
	r.mtx.Lock()
	r.game = game.New(players[0], players[1], r.Config.Dice)
	r.stage = StageKindPlaying
	r.mtx.Unlock()

	r.emit(Event{Kind: EventRematchStarted, Code: r.Code, Actor: players[0]})
	r.promptNext()
	return nil
}

func (r *Session) handleDecline(userID int64) error {
	if r.Stage() != StageKindRematch {
		return ErrWrongStage
	}
	if !r.isPlayer(userID) {
		return ErrNotAPlayer
	}

	stopTimer(r.rematchTimer)
	r.rematchTimer = nil
	r.emit(Event{Kind: EventDrawDeclared, Code: r.Code})
	r.conclude(game.Outcome{IsTie: true})
	return nil
}

func (r *Session) isPlayer(userID int64) bool {
	players := r.Players()
	return userID == players[0] || userID == players[1]
}

// botTurn advances the automated opponent by one step. Roll and keep
// are separate wake-ups so the table stays responsive between them and
// cancellation is observed without further mutation.
func (r *Session) botTurn() {
	if r.Stage() != StageKindPlaying || !r.isBot(r.CurrentPlayer()) {
		return
	}

	switch r.botStep {
	case botStepRoll:
		r.mtx.Lock()
		values := r.game.Roll()
		moonShot := r.game.MoonShot()
		r.mtx.Unlock()

		if moonShot {
			r.finishGame()
			return
		}
		if len(values) == 0 {
			return
		}

		r.emit(Event{Kind: EventRolled, Code: r.Code, Actor: r.Config.BotID, Values: values})
		r.scheduleBot(botStepKeep)
	case botStepKeep:
		bot := r.Config.BotID
		r.mtx.Lock()
		indices := game.KeepIndices(r.game.State(bot).CurrentRoll)
		ok := r.game.Keep(indices)
		r.mtx.Unlock()
		if !ok {
			return
		}

		r.emit(Event{
			Kind:   EventKept,
			Code:   r.Code,
			Actor:  bot,
			Values: r.kept(bot),
			Score:  r.score(bot),
		})
		r.afterKeep()
	}
}

func (r *Session) scheduleBot(step uint8) {
	r.botStep = step
	r.botTimer = time.NewTimer(r.botDelay())
}

// thinking-time jitter in [BotDelayMin, BotDelayMax]
func (r *Session) botDelay() time.Duration {
	min, max := r.Config.BotDelayMin, r.Config.BotDelayMax
	if max <= min {
		return min
	}
	spread := uint32((max - min) / time.Millisecond)
	return min + time.Duration(fastrand.Uint32n(spread))*time.Millisecond
}

// conclude runs the done callback exactly once; the loop exits on the
// finished stage and shutdown cancels the session context.
func (r *Session) conclude(outcome game.Outcome) {
	r.setStage(StageKindFinished)
	r.doneOnce.Do(func() {
		if r.Config.DoneFn != nil {
			if err := r.Config.DoneFn(r, outcome); err != nil {
				logging.DefaultLogger().Errorf("done function: %v", err)
			}
		}
	})
}

func (r *Session) emit(event Event) {
	select {
	case r.eventCh <- event:
	default:
		logging.DefaultLogger().Warnf("event channel full, dropping event kind %d, code: %d", event.Kind, r.Code)
	}
}

func (r *Session) sendingWorker(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("match.sendingWorker")
	deliver := func(event Event) {
		if r.Config.Notifier == nil {
			return
		}
		if err := r.Config.Notifier.Notify(event); err != nil {
			logger.Errorf("notify: %v", err)
		}
	}

	for {
		select {
		case event := <-r.eventCh:
			deliver(event)
		case <-ctx.Done():
			// drain what the loop managed to emit before cancelling
			for {
				select {
				case event := <-r.eventCh:
					deliver(event)
				default:
					return
				}
			}
		}
	}
}
