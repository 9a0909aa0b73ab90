// Package rate enforces the failed-login budget with Redis fixed-window
// counters. It owns counting and cooldown only; which attempts count as
// failures is decided by the Engine.
package rate
