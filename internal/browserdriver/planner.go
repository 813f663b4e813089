package browserdriver

import (
	"context"
	"time"

	"github.com/haasonsaas/outreach-autopilot/internal/errs"
	"github.com/haasonsaas/outreach-autopilot/internal/stopsignal"
)

// DefaultPlannerMaxTurns is the per-operation turn cap for the
// planner-executor loop.
const DefaultPlannerMaxTurns = 40

// turnTimeout bounds a single computer-use provider round-trip.
const turnTimeout = 30 * time.Second

// plannerState is the bounded state machine the optional planner-executor
// loop runs through: capture a screenshot, ask the provider what to do
// next, execute the returned action on the live page, and repeat.
type plannerState string

const (
	statePlan    plannerState = "plan"
	stateExecute plannerState = "execute"
	stateWait    plannerState = "wait"
	stateDone    plannerState = "done"
	stateError   plannerState = "error"
)

// ComputerAction is one step returned by the provider's computer-use call,
// narrowed to the action taxonomy this driver can execute locally.
type ComputerAction struct {
	Kind string // "click", "type", "key", "scroll", or "" (no further action)
	X, Y int
	Text string
	DX   int
	DY   int
}

// PlannerCaller issues one computer-use provider turn: given a screenshot
// and the previous turn id, it returns the next action (Kind=="" means the
// provider has nothing further to do) and the turn id to chain into the
// next call.
type PlannerCaller interface {
	NextAction(ctx context.Context, screenshot []byte, previousTurnID string) (action ComputerAction, turnID string, err error)
}

// Planner runs the bounded plan/execute/wait loop described in the
// BrowserDriver design: provider calls are offloaded to a worker goroutine
// so they never block the single-threaded page driver, and StopSignal is
// polled every iteration.
type Planner struct {
	page     Page
	actor    ComputerActor
	caller   PlannerCaller
	stop     *stopsignal.Signal
	maxTurns int
}

// NewPlanner builds a Planner. maxTurns<=0 uses DefaultPlannerMaxTurns.
func NewPlanner(page Page, actor ComputerActor, caller PlannerCaller, stop *stopsignal.Signal, maxTurns int) *Planner {
	if maxTurns <= 0 {
		maxTurns = DefaultPlannerMaxTurns
	}
	return &Planner{page: page, actor: actor, caller: caller, stop: stop, maxTurns: maxTurns}
}

// Run drives the state machine to completion: plan (screenshot + provider
// call) → execute (apply the returned action) → wait (poll stop, chain
// into the next plan), ending in done when the provider returns no further
// action, the turn cap is reached, or StopSignal is set, and in error on a
// provider or execution failure. The turn cap counts provider round-trips,
// not raw state transitions, so termination is guaranteed by the cap.
func (p *Planner) Run(ctx context.Context) error {
	state := statePlan
	turnID := ""
	turns := 0
	var action ComputerAction
	var runErr error

	for {
		switch state {
		case statePlan:
			if p.stop.IsSet() || turns >= p.maxTurns {
				state = stateDone
				continue
			}
			shot, err := p.page.Screenshot()
			if err != nil {
				runErr = errs.New(errs.KindBrowser, "planner_screenshot", err)
				state = stateError
				continue
			}
			next, nextTurnID, err := p.callProvider(ctx, shot, turnID)
			turns++
			if err != nil {
				runErr = errs.New(errs.KindProvider, "planner_turn", err)
				state = stateError
				continue
			}
			turnID = nextTurnID
			if next.Kind == "" {
				state = stateDone
				continue
			}
			action = next
			state = stateExecute

		case stateExecute:
			if err := p.execute(action); err != nil {
				runErr = err
				state = stateError
				continue
			}
			state = stateWait

		case stateWait:
			if p.stop.IsSet() {
				state = stateDone
				continue
			}
			state = statePlan

		case stateDone:
			return nil

		case stateError:
			return runErr
		}
	}
}

// callProvider offloads the provider call to a worker goroutine so a
// slow/hanging provider call never blocks the single-threaded page driver
// from honoring a concurrent stop request; it still participates in ctx
// cancellation.
func (p *Planner) callProvider(ctx context.Context, shot []byte, previousTurnID string) (ComputerAction, string, error) {
	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	type result struct {
		action ComputerAction
		turnID string
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		action, turnID, err := p.caller.NextAction(turnCtx, shot, previousTurnID)
		ch <- result{action, turnID, err}
	}()

	select {
	case <-turnCtx.Done():
		return ComputerAction{}, "", turnCtx.Err()
	case r := <-ch:
		return r.action, r.turnID, r.err
	}
}

func (p *Planner) execute(action ComputerAction) error {
	var err error
	switch action.Kind {
	case "click":
		err = p.actor.Click(action.X, action.Y)
	case "type":
		err = p.actor.Type(action.Text)
	case "key":
		err = p.actor.Key(action.Text)
	case "scroll":
		err = p.actor.Scroll(action.DX, action.DY)
	default:
		return nil
	}
	if err != nil {
		return errs.New(errs.KindBrowser, "planner_execute", err)
	}
	return nil
}
