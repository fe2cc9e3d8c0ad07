package xmat

import "github.com/cespare/xxhash/v2"

// Fingerprint identifies the query a row shape came from. Materializers are
// cached per (target type, Fingerprint); the column list is not part of it, so
// one query text is expected to always produce the same shape.
type Fingerprint uint64

// FingerprintOf hashes a command text.
func FingerprintOf(text string) Fingerprint {
	return Fingerprint(xxhash.Sum64String(text))
}

// Command is a query text plus its positional arguments.
type Command struct {
	Text string
	Args []any

	// source is the text the command was derived from by Named or Rebind.
	source string
}

// SQL builds a Command. Arguments are passed to the driver untouched.
func SQL(text string, args ...any) Command {
	return Command{Text: text, Args: args}
}

// Fingerprint returns the cache identity of the command text. Commands built
// by Named or Rebind hash the text they were built from.
func (c Command) Fingerprint() Fingerprint { return FingerprintOf(c.identity()) }

func (c Command) identity() string {
	if c.source != "" {
		return c.source
	}
	return c.Text
}
