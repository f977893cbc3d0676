package model

// ValidationError reports malformed input to a task operation (empty
// title, unknown priority, oversized description). It is an expected
// business condition: callers report it back to the user or the model
// rather than failing the request.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}
