// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

// AgentContext is the handle an agent's RunFunc uses to suspend itself:
// sleeping until a future simulated day, or blocking on an Interactant.
// It is only valid for the duration of a single RunFunc invocation.
type AgentContext struct {
	agent *Agent
	seq   *Sequencer
}

// TimeNow returns the sequencer's current simulated day.
func (ctx *AgentContext) TimeNow() int {
	return ctx.seq.TimeNow()
}

// Agent returns the agent this context belongs to.
func (ctx *AgentContext) Agent() *Agent {
	return ctx.agent
}

// Sleep enqueues the agent to wake nDays from the sequencer's current day
// and yields control back to whoever last resumed it. It returns once the
// agent is resumed, panicking with killSignal if the agent was killed while
// asleep — the panic unwinds through the caller's RunFunc and is caught by
// Agent.start.
func (ctx *AgentContext) Sleep(nDays int) {
	ctx.seq.Enqueue(ctx.agent, ctx.seq.TimeNow()+nDays)
	ctx.yield()
}

// suspend yields control without enqueuing the agent anywhere; the agent
// stays off the sequencer entirely until another agent releases it: an
// Interactant's Unlock hands it the lock and re-enqueues it, or a
// KeyedInteractant's Awaken resumes it directly. This mirrors the original
// kernel's suspend.
func (ctx *AgentContext) suspend() {
	ctx.yield()
}

// yield hands control back to the resumer and blocks until resumed again.
func (ctx *AgentContext) yield() {
	a := ctx.agent
	a.yieldCh <- struct{}{}
	msg := <-a.resumeCh
	if msg.kill {
		panic(killSignal{})
	}
}
