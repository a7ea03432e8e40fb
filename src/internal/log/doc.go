// Package log provides leveled logging for the gateway.
//
// Output is line-oriented with a level prefix ([DBG], [INF], [WRN], [ERR]),
// coloured with ANSI escape codes unless colours are disabled. Errors go to
// stderr, everything else to stdout.
//
// # Example Usage
//
//	log.Infof("Gateway listening on %s", addr)
//	log.Warnf("Host %s failed, trying next", code)
//
// Components that log a lot get a scoped logger so lines can be told apart:
//
//	var logger = log.Named("dispatcher")
//	logger.Debugf("request %s: %s -> %s", id, from, to)
//
// Debug output is only emitted after SetVerbose(true).
//
// Access decisions are not written here; they go to the structured audit
// stream owned by the access package.
package log
