// Package session runs the per-tick redirection state machine of a keypad
// study session.
//
// A Session owns the active target, the warp origin, the PIN generator and
// (in study mode) the condition schedule and break timer. Each Tick reads the
// real hand, head and body poses plus the reach depth and press signal,
// advances the state machine and returns the virtual hand pose to render.
//
// Tick order:
//
//  1. Breaks, questionnaires and a finished study pass the real hand through.
//  2. Retracting past the threshold with no target selected ends the last
//     target, selects a new one (or shifts the keypad), closes a completed
//     PIN and runs the study flow.
//  3. Reaching back in past the threshold anchors the warp origin once and
//     activates redirection.
//  4. A press deactivates the target and records one PIN digit.
//  5. The active technique computes the virtual hand.
//  6. A TickRecord is emitted to the Sink.
//
// A Session is not safe for concurrent use; it is driven from one tick
// goroutine. Sinks and notifiers receive copies only.
package session
