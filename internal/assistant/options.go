package assistant

// AnswerOption adjusts a single Answer call.
type AnswerOption func(*answerOptions)

// answerOptions are the per-call settings resolved from AnswerOptions.
type answerOptions struct {
	sessionID string
	prefix    string
}

// WithSession records the turn under id instead of the assistant's own
// session. Empty ids are ignored.
func WithSession(id string) AnswerOption {
	return func(o *answerOptions) {
		if id != "" {
			o.sessionID = id
		}
	}
}

// WithoutPrefix streams the answer without AnswerPrefix. HTTP clients render
// their own speaker labels.
func WithoutPrefix() AnswerOption {
	return func(o *answerOptions) { o.prefix = "" }
}

func (a *Assistant) resolveOptions(opts []AnswerOption) answerOptions {
	o := answerOptions{sessionID: a.sessionID, prefix: AnswerPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
