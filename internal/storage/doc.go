// Package storage keeps a journal of relayed alerts and their delivery
// outcome.
//
// The journal is write-mostly: the relay appends one entry per emitted
// alert, the history command reads it back and a cron-scheduled pruner
// trims old entries. It is never used to restore debounce state.
package storage
