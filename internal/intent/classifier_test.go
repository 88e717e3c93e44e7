package intent

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want Intent
	}{
		{"hi", Greeting},
		{"Hello!", Greeting},
		{"  hey there  ", Greeting},
		{"Good morning", Greeting},
		{"good   evening everyone!", Greeting},
		{"how are you?", HowAreYou},
		{"Hi, how are you doing today?", HowAreYou},
		{"what's up", HowAreYou},
		{"thanks", Thanks},
		{"Thank you so much!", Thanks},
		{"thx", Thanks},
		{"bye", Farewell},
		{"See you later!", Farewell},
		{"have a great day", Farewell},

		{"", None},
		{"hi, what are your opening hours?", None},
		{"hello I need a refund", None},
		{"What are your hours?", None},
		{"thanks but that didn't answer my question", None},
		{"this", None},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := Classify(tt.msg); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}

func TestIsConversational(t *testing.T) {
	if !IsConversational("hello") {
		t.Error("expected hello to be conversational")
	}
	if IsConversational("How do I reset my password?") {
		t.Error("expected a real question not to be conversational")
	}
}
