package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

// ErrorWithDetails carries the underlying cause alongside a user-facing
// message.
func ErrorWithDetails(message, details string) Envelope {
	return Envelope{"error": message, "details": details}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}
