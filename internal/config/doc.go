// Package config defines the configuration structure for the
// reproduction harness.
//
// Configuration is organized into logical sections (Daemon, Ports) plus
// top-level run settings, and is loaded from struct defaults, an
// optional config file, REPROD_* environment variables and CLI flags.
//
// # Daemon Configuration
//
//	┌──────────────────┬─────────┬──────────────────────────────────────────┐
//	│ Field            │ Default │ Description                              │
//	├──────────────────┼─────────┼──────────────────────────────────────────┤
//	│ Bin              │ "ipfs"  │ Path to the kubo binary under test       │
//	│ RepoPath         │ ""      │ Repository dir (empty: /tmp fallback)    │
//	│ ExpectedVersion  │ ""      │ Pin `ipfs version`; empty skips check    │
//	│ ReadyTimeout     │ 0s      │ Bound on readiness wait; 0 = unbounded   │
//	└──────────────────┴─────────┴──────────────────────────────────────────┘
//
// ReadyTimeout deserves a note: the source behavior waits for the
// readiness marker with no deadline at all, bailed out only by a daemon
// crash. That is a latent hang risk in the harness itself, so the bound
// is configurable rather than hardcoded either way.
//
// # Ports Configuration
//
//	┌──────────┬─────────────┬──────────────────────────────────────────┐
//	│ Field    │ Default     │ Description                              │
//	├──────────┼─────────────┼──────────────────────────────────────────┤
//	│ Host     │ "127.0.0.1" │ Host every port is checked and bound on  │
//	│ RouterA  │ 9998        │ First delegated routing endpoint         │
//	│ RouterB  │ 9999        │ Second delegated routing endpoint        │
//	│ Swarm    │ 4101        │ Daemon swarm listen port                 │
//	│ API      │ 5101        │ Daemon API port                          │
//	│ Gateway  │ 8180        │ Daemon gateway port                      │
//	└──────────┴─────────────┴──────────────────────────────────────────┘
//
// # Run Settings
//
//	┌───────────────┬───────────┬──────────────────────────────────────────┐
//	│ Field         │ Default   │ Description                              │
//	├───────────────┼───────────┼──────────────────────────────────────────┤
//	│ ProbeDeadline │ 120s      │ Wall-clock bound on the fetch probe      │
//	│ DataFolder    │ ""        │ Run-history DB dir; empty disables it    │
//	│ LogLevel      │ "info"    │ Logging verbosity                        │
//	│ LogFormat     │ "console" │ "console" or "json"                      │
//	└───────────────┴───────────┴──────────────────────────────────────────┘
//
// # Debug Logging
//
// Fields are tagged `debugmap:"visible"`; log the loaded configuration
// with structured logging rather than fmt so a run report carries the
// exact settings it observed.
package config
