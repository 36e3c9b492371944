// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package kernel

import "fmt"

// ErrorKind classifies the kernel errors that can be raised during
// scheduling, locking, or day advancement.
type ErrorKind string

const (
	// ErrUnlockNotOwner is raised when an agent unlocks an interactant it
	// does not hold.
	ErrUnlockNotOwner ErrorKind = "unlock_not_owner"
	// ErrDoubleLock is raised when MultiInteractant bookkeeping finds an
	// agent already holding a slot it is trying to acquire again.
	ErrDoubleLock ErrorKind = "double_lock"
	// ErrNoReadyAgents names the condition in which no agent is scheduled
	// at any future time. No function in this package returns it:
	// BumpTime reports that condition by returning false.
	ErrNoReadyAgents ErrorKind = "no_ready_agents"
	// ErrSafetyExceeded is raised when the configured safety counter of
	// event steps is exceeded without the simulation reaching its
	// termination condition, guarding against runaway schedules.
	ErrSafetyExceeded ErrorKind = "safety_exceeded"
	// ErrDeadAgent names an operation attempted against an agent that has
	// already finished or been killed. No function in this package returns
	// it: Resume and Kill on a finished agent are no-ops.
	ErrDeadAgent ErrorKind = "dead_agent"
	// ErrPastEnqueue is raised when Enqueue is asked to schedule an agent
	// at a time earlier than the sequencer's current day.
	ErrPastEnqueue ErrorKind = "past_enqueue"
	// ErrNotScheduled is raised when Interactant.Suspend is asked to park
	// an agent that is not currently scheduled in the sequencer.
	ErrNotScheduled ErrorKind = "not_scheduled"
	// ErrNotWaiting is raised when Interactant.Awaken is asked to wake an
	// agent that is not in its wait queue.
	ErrNotWaiting ErrorKind = "not_waiting"
)

// KernelError reports a kernel-internal inconsistency with enough
// context to diagnose it without a debugger attached to the rank.
type KernelError struct {
	Kind    ErrorKind
	Agent   string
	Detail  string
}

func (e *KernelError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("kernel: %s: agent %q: %s", e.Kind, e.Agent, e.Detail)
	}
	return fmt.Sprintf("kernel: %s: %s", e.Kind, e.Detail)
}

func newKernelError(kind ErrorKind, agent, detail string) *KernelError {
	return &KernelError{Kind: kind, Agent: agent, Detail: detail}
}
