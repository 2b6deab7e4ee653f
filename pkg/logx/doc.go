// Package logx configures schedbot's structured logging.
//
// logx.Logger is a thin wrapper over zerolog. Console output stays readable
// (short timestamp and caller), file output stays JSON, and an optional Slack
// sink forwards warnings to an ops channel with a rate limit.
package logx
