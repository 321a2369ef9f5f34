package upscale

import "fmt"

// InitParseError reports that the tool page no longer matches the scraping
// patterns, usually after a service-side markup change.
type InitParseError struct {
	What string
}

func (e *InitParseError) Error() string {
	return fmt.Sprintf("upscale: could not find %s in tool page", e.What)
}

// PreconditionError reports a pipeline step called out of order. It is a
// programming error and must never be retried.
type PreconditionError struct {
	Operation string
	Want      string
	Got       string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("upscale: %s requires stage %s but pipeline is at %s", e.Operation, e.Want, e.Got)
}
