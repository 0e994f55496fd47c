// Package workflow implements the state machine that drives podcast script
// generation.
//
// Control flow is a closed loop between four capability roles mediated by a
// shared context snapshot: ANALYZING -> PLANNING -> GENERATING -> REVIEWING,
// with REVIEWING looping back to GENERATING under editorial feedback or
// advancing to PLANNING on approval, until the planner wraps up (DONE). A
// FAILED absorbing state is reachable from anywhere on a failed action or on
// exceeding the round budget.
//
// Two safety valves bound the loop: a per-section revision limit (forced
// approval once exceeded) and a global round budget (terminal failure). Both
// are configuration, and the engine returns the full transition trace with
// the final snapshot for diagnostics.
package workflow
