package model

// Transcript is the ordered message history of the chat panel. Values are never
// mutated in place; every operation returns a new Transcript so snapshots handed
// to the presentation layer stay stable.
type Transcript []Message

// NewTranscript starts a transcript with the given greeting bubble.
func NewTranscript(greeting string) Transcript {
	if greeting == "" {
		return Transcript{}
	}
	return Transcript{{Role: RoleAI, Text: greeting}}
}

// FromTurns rebuilds the chat panel from stored turns. A turn yields zero, one
// or two messages depending on which halves are present.
func FromTurns(turns []Turn) Transcript {
	t := make(Transcript, 0, len(turns)*2)
	for _, turn := range turns {
		if turn.UserMessage != "" {
			t = append(t, Message{Role: RoleUser, Text: turn.UserMessage})
		}
		if turn.BotResponse != "" {
			t = append(t, Message{Role: RoleAI, Text: turn.BotResponse})
		}
	}
	return t
}

// Append returns a copy with m added at the end.
func (t Transcript) Append(m Message) Transcript {
	out := make(Transcript, len(t), len(t)+1)
	copy(out, t)
	return append(out, m)
}

// TruncateAfter returns the messages up to and including index, discarding
// everything that followed it. Out-of-range indexes return a copy unchanged.
func (t Transcript) TruncateAfter(index int) Transcript {
	if index < 0 || index >= len(t) {
		return t.Clone()
	}
	out := make(Transcript, index+1)
	copy(out, t[:index+1])
	return out
}

// Replace returns a copy with the text at index swapped for text.
func (t Transcript) Replace(index int, text string) Transcript {
	out := t.Clone()
	if index >= 0 && index < len(out) {
		out[index].Text = text
	}
	return out
}

// LastIndexOf returns the index of the most recent message with the given role,
// or -1.
func (t Transcript) LastIndexOf(role Role) int {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == role {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy.
func (t Transcript) Clone() Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
