package nptcore

import (
	"io"
	"log"
)

// Logger is the package-level diagnostic sink. The core itself never
// returns errors through a side channel -- every failure is a returned
// *Error -- but two sites log extra detail through this: AddrSpace.Unmap
// when the requested size differs from the region's size (the whole region
// is still unmapped), and Clone when a target page cannot be faulted in
// (Clone then also returns an error). Discards by default; set it to direct
// output to the embedder's own logger.
var Logger = log.New(io.Discard, "nptcore: ", log.LstdFlags)

func warnf(format string, args ...any) {
	Logger.Printf(format, args...)
}
