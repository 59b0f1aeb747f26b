// Package redirect implements the hand redirection techniques and the
// redirection targets they warp towards.
//
// Responsibilities: per-frame virtual hand computation (body warping with a
// zero-warp zone, curve-driven body warping), real/virtual target
// correspondences, and the policy that picks the next target and its
// effective real position (sequential, random point, random vector).
// Key types: Technique, Target, Pool, Selector, Curve.
//
// Techniques are stateful between Init and EndRedirection. They never
// mutate the target, the real hand pose or the body pose they are given;
// the only pose a technique may move is the warp origin it is handed by
// pointer.
//
// No session or study logic lives here; see internal/session.
package redirect
