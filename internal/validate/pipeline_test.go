package validate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/primus/primacron/internal/gatewayerr"
	"github.com/primus/primacron/internal/validate"
)

func newPipeline(t *testing.T) (*validate.Pipeline, *[]gatewayerr.Event, *[]string) {
	t.Helper()
	var errs []gatewayerr.Event
	var streamed []string

	p := validate.NewPipeline(
		func(event string, data []any, raw, user string) {
			streamed = append(streamed, event)
		},
		func(ev gatewayerr.Event) {
			errs = append(errs, ev)
		},
	)
	return p, &errs, &streamed
}

func TestValidateMissingValidatorEmitsError(t *testing.T) {
	p, errs, streamed := newPipeline(t)

	p.Validate(context.Background(), "unknown-event", nil, "user1", "{}")

	if len(*streamed) != 0 {
		t.Fatalf("expected no stream emission, got %v", *streamed)
	}
	if len(*errs) != 1 || (*errs)[0].Kind != gatewayerr.KindValidation {
		t.Fatalf("expected one validation error, got %v", *errs)
	}
	if !errors.Is((*errs)[0].Err, validate.ErrValidatorMissing) {
		t.Fatalf("expected ErrValidatorMissing, got %v", (*errs)[0].Err)
	}
}

func TestValidateAcceptEmitsStream(t *testing.T) {
	p, errs, streamed := newPipeline(t)

	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {
		complete(nil, true, nil)
	}, 2)

	p.Validate(context.Background(), "chat", []any{"hello"}, "user1", `["chat","hello"]`)

	if len(*streamed) != 1 || (*streamed)[0] != "chat" {
		t.Fatalf("expected one stream emission for chat, got %v", *streamed)
	}
	if len(*errs) != 0 {
		t.Fatalf("expected no errors, got %v", *errs)
	}
}

func TestValidateRejectEmitsError(t *testing.T) {
	p, errs, streamed := newPipeline(t)

	rejectErr := errors.New("not allowed")
	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {
		complete(rejectErr, false, nil)
	}, 2)

	p.Validate(context.Background(), "chat", []any{"hello"}, "user1", `["chat","hello"]`)

	if len(*streamed) != 0 {
		t.Fatalf("expected no stream emission on rejection, got %v", *streamed)
	}
	if len(*errs) != 1 || !errors.Is((*errs)[0].Err, rejectErr) {
		t.Fatalf("expected rejection error, got %v", *errs)
	}
}

func TestValidateFitsArityShortData(t *testing.T) {
	p, _, _ := newPipeline(t)

	var gotLen int
	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {
		gotLen = len(data)
		complete(nil, true, nil)
	}, 4) // arity 4 -> 3 data slots

	p.Validate(context.Background(), "chat", []any{"only-one"}, "user1", "[]")

	if gotLen != 3 {
		t.Fatalf("expected data fitted to 3 slots, got %d", gotLen)
	}
}

func TestValidateFitsArityTruncatesLongData(t *testing.T) {
	p, _, _ := newPipeline(t)

	var got []any
	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {
		got = data
		complete(nil, true, nil)
	}, 2) // arity 2 -> 1 data slot

	p.Validate(context.Background(), "chat", []any{"a", "b", "c"}, "user1", "[]")

	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected data truncated to [a], got %v", got)
	}
}

func TestRegisteredReportsPresence(t *testing.T) {
	p, _, _ := newPipeline(t)
	if p.Registered("chat") {
		t.Fatal("expected chat to be unregistered initially")
	}
	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {}, 1)
	if !p.Registered("chat") {
		t.Fatal("expected chat to be registered")
	}
}

func TestEventNamesListsRegistrations(t *testing.T) {
	p, _, _ := newPipeline(t)
	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {}, 1)
	p.Register("ping", func(ctx context.Context, data []any, complete validate.Complete) {}, 1)

	names := p.EventNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 event names, got %v", names)
	}
}

func TestValidateTransformedReplacesData(t *testing.T) {
	var streamedData []any
	p := validate.NewPipeline(
		func(event string, data []any, raw, user string) { streamedData = data },
		nil,
	)
	p.Register("chat", func(ctx context.Context, data []any, complete validate.Complete) {
		complete(nil, true, []any{"transformed"})
	}, 2)

	p.Validate(context.Background(), "chat", []any{"original"}, "user1", "[]")

	if len(streamedData) != 1 || streamedData[0] != "transformed" {
		t.Fatalf("expected transformed data to replace original, got %v", streamedData)
	}
}
