package manager

// modelNotReadyError signals that inference was attempted before a load cycle
// finished. The trigger-and-proceed behavior of RunOCR makes this reachable
// on purpose; callers see it as an internal failure and retry.
type modelNotReadyError struct{}

func (modelNotReadyError) Error() string { return "model is not loaded yet" }

// IsModelNotReady reports whether err indicates inference raced the loader.
func IsModelNotReady(err error) bool {
	_, ok := err.(modelNotReadyError)
	return ok
}
