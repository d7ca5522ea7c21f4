/*
Package domain contains the core domain models for the Parley engine.

It defines the fundamental entities of the stage/state orchestration core:
Stages, Transitions, the per-conversation Snapshot, and the typed contexts
exchanged between guard rails, decision rules, and the external
decision-maker. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Stage: A macro-phase of the conversation with its own state set,
    transition table, and guard-rail configuration.
  - Transition: A named trigger that moves the conversation between states.
  - Snapshot: The runtime snapshot of a session (stage, state, counters).
  - StateContext: The read contract consumed by the external decision-maker.
*/
package domain
