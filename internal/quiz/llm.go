package quiz

import "context"

type PromptClient interface {
	Send(ctx context.Context, req PromptRequest) (string, error)
}

// ResourceFinder never fails: a nil result means nothing useful was found.
type ResourceFinder interface {
	FindResource(ctx context.Context, referenceText string) *ResourceRef
}
