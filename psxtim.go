/*
Package psxtim is a library for pulling PlayStation TIM textures out of game
data and putting modified ones back.

It builds on the tim and container packages, adding disc image handling,
batch extraction to image files, repacking from a directory of replacement
records, converting ordinary images to TIM and a catalog of what was found
where.
*/
package psxtim

import (
	"io/ioutil"
	"log"
)

// Tool carries the shared state of the operations.
type Tool struct {
	db     *Catalog
	logger *log.Logger
}

// New returns a Tool. db may be nil if no catalog operations are used and a
// nil logger discards all messages.
func New(db *Catalog, logger *log.Logger) *Tool {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &Tool{
		db:     db,
		logger: logger,
	}
}
