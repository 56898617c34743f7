package domain

import "errors"

var (
	// ErrInvalidCriteria marks a syntactically malformed filter bound,
	// e.g. an unparseable date. Out-of-range bounds are not an error.
	ErrInvalidCriteria = errors.New("invalid filter criteria")

	// ErrProviderUnreachable means the messaging provider itself could not
	// be reached (connectivity or timeout). It aborts the remainder of a
	// dispatch run; unprocessed recipients stay pending.
	ErrProviderUnreachable = errors.New("messaging provider unreachable")

	// ErrTerminalState is returned when an outcome write would overwrite a
	// record that is already sent.
	ErrTerminalState = errors.New("delivery record is in a terminal state")

	// ErrNotFound covers lookups of campaigns or records that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrCampaignBusy means another dispatch or reprocess run currently
	// holds the campaign's run lock.
	ErrCampaignBusy = errors.New("campaign already has an active run")
)
