// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

// RunFunc is the body of an agent's suspendable computation. It receives
// an AgentContext through which it sleeps, locks, and unlocks, exactly as
// the original kernel's Agent.run would drive the greenlet.
type RunFunc func(ctx *AgentContext)

// resumeMsg is sent across an agent's resume channel each time it is
// switched into. kill, when set, tells the agent to unwind cooperatively
// instead of continuing.
type resumeMsg struct {
	kill bool
}

// killSignal is the panic value used to unwind a killed agent's goroutine.
// The agent's own recover treats it as normal termination; any other
// panic value propagates as a genuine crash.
type killSignal struct{}

// Agent is a single suspendable computation scheduled by a Sequencer. Its
// body runs on its own goroutine but only ever executes while holding the
// resume token handed to it by whichever party called Resume — the
// MainLoop draining the sequencer, or a KeyedInteractant waking its
// waiters by key. At most one goroutine in a rank is ever actually running kernel
// logic at a time.
type Agent struct {
	name     string
	timeless bool
	seq      *Sequencer
	wakeTime int

	resumeCh chan resumeMsg
	yieldCh  chan struct{}

	started  bool
	finished bool
	killed   bool

	run RunFunc
}

// NewAgent creates an agent named name, scheduled against seq, whose body
// is run. timeless agents are excluded from end-of-day census checks
// (they model background processes rather than simulated individuals).
func NewAgent(name string, seq *Sequencer, timeless bool, run RunFunc) *Agent {
	return &Agent{
		name:     name,
		timeless: timeless,
		seq:      seq,
		resumeCh: make(chan resumeMsg),
		yieldCh:  make(chan struct{}),
		run:      run,
	}
}

// Name returns the agent's display name, used in census reporting.
func (a *Agent) Name() string { return a.name }

// Timeless reports whether this agent is excluded from the done-with-today
// check (e.g. the ClockAgent itself). Waiting censuses still count it.
func (a *Agent) Timeless() bool { return a.timeless }

// Finished reports whether the agent's body has returned or been killed.
func (a *Agent) Finished() bool { return a.finished }

// WakeTime returns the simulated day this agent is next due to run.
func (a *Agent) WakeTime() int { return a.wakeTime }

func (a *Agent) start() {
	if a.started {
		return
	}
	a.started = true
	go func() {
		defer func() {
			r := recover()
			a.finished = true
			if r != nil {
				if _, ok := r.(killSignal); !ok {
					panic(r)
				}
			}
			a.yieldCh <- struct{}{}
		}()
		msg := <-a.resumeCh
		if msg.kill {
			panic(killSignal{})
		}
		ctx := &AgentContext{agent: a, seq: a.seq}
		a.run(ctx)
	}()
}

// Resume hands the resume token to the agent and blocks until it yields
// back (by sleeping or suspending on an interactant) or finishes.
func (a *Agent) Resume() {
	if a.finished {
		return
	}
	if !a.started {
		a.start()
	}
	a.resumeCh <- resumeMsg{}
	<-a.yieldCh
}

// Kill unwinds the agent's goroutine cooperatively at its next suspension
// point, mirroring the original kernel's use of GreenletExit. Safe to call
// on an agent that never started or has already finished.
func (a *Agent) Kill() {
	if a.finished {
		return
	}
	a.killed = true
	if !a.started {
		a.start()
	}
	a.resumeCh <- resumeMsg{kill: true}
	<-a.yieldCh
}

// Killed reports whether Kill was called on this agent.
func (a *Agent) Killed() bool { return a.killed }
