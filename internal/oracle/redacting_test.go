package oracle

import (
	"context"
	"strings"
	"testing"
)

func TestRedactingTokenizesOutbound(t *testing.T) {
	var sent Prompt
	inner := Func(func(_ context.Context, p Prompt) (Reply, error) {
		sent = p
		return Reply{Text: "reviewed <<MRN_1>> per criteria"}, nil
	})

	r := NewRedacting(inner, "chest_pain_001", []string{"Margaret Chen"})
	reply, err := r.Invoke(context.Background(), Prompt{
		System: "You review requests.",
		User:   "Patient Margaret Chen, MRN: 4471-229A, needs a stress test.",
	})
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(sent.User, "Margaret Chen") || strings.Contains(sent.User, "4471-229A") {
		t.Errorf("PHI left the process: %s", sent.User)
	}
	if !strings.Contains(sent.User, "Token legend:") {
		t.Error("legend missing from outbound prompt")
	}
	if !strings.Contains(reply.Text, "4471-229A") {
		t.Errorf("reply not detokenized: %s", reply.Text)
	}
}

func TestRedactingStableTokensAcrossCalls(t *testing.T) {
	var lastUser string
	inner := Func(func(_ context.Context, p Prompt) (Reply, error) {
		lastUser = p.User
		return Reply{Text: "ok"}, nil
	})

	r := NewRedacting(inner, "c1", nil)

	if _, err := r.Invoke(context.Background(), Prompt{User: "MRN: 4471-229A first"}); err != nil {
		t.Fatal(err)
	}
	first := lastUser
	if _, err := r.Invoke(context.Background(), Prompt{User: "MRN: 4471-229A appeal"}); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(first, "<<MRN_1>>") || !strings.Contains(lastUser, "<<MRN_1>>") {
		t.Error("same value must keep its token across iterations")
	}
}

func TestRedactingCleanPromptUntouched(t *testing.T) {
	inner := Func(func(_ context.Context, p Prompt) (Reply, error) {
		if strings.Contains(p.User, "Token legend") {
			t.Error("legend added to a prompt with no PHI")
		}
		return Reply{Text: "fine"}, nil
	})

	r := NewRedacting(inner, "c1", nil)
	if _, err := r.Invoke(context.Background(), Prompt{User: "troponin 0.02, order stress test"}); err != nil {
		t.Fatal(err)
	}
	if r.TokenMap().Len() != 0 {
		t.Error("tokens allocated for clean prompt")
	}
}
