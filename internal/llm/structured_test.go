package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordingProvider struct {
	name  string
	reply string
	err   error
	reqs  []Request
}

func (r *recordingProvider) Name() string { return r.name }

func (r *recordingProvider) Complete(_ context.Context, req Request) (string, error) {
	r.reqs = append(r.reqs, req)
	return r.reply, r.err
}

func TestCompleteJSONAppendsContract(t *testing.T) {
	p := &recordingProvider{reply: `{"ok":true}`}
	in := Request{Messages: []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "make a map\n"},
	}}

	out, err := CompleteJSON(context.Background(), p, in, "Return JSON only.")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out != `{"ok":true}` {
		t.Errorf("unexpected output %q", out)
	}
	got := p.reqs[0]
	if !got.JSON {
		t.Error("expected JSON mode")
	}
	if got.Messages[1].Content != "make a map\n\nReturn JSON only." {
		t.Errorf("unexpected user message %q", got.Messages[1].Content)
	}
	if in.Messages[1].Content != "make a map\n" {
		t.Error("input request was mutated")
	}
}

func TestCompleteJSONWithoutUserMessage(t *testing.T) {
	p := &recordingProvider{reply: "{}"}
	_, err := CompleteJSON(context.Background(), p, Request{Messages: []Message{{Role: RoleSystem, Content: "s"}}}, "contract")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	msgs := p.reqs[0].Messages
	if len(msgs) != 2 || msgs[1].Role != RoleUser || msgs[1].Content != "contract" {
		t.Errorf("unexpected messages %+v", msgs)
	}
}

func TestFallbackPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	primary := &recordingProvider{name: "primary", err: boom}
	secondary := &recordingProvider{name: "secondary", reply: "x"}
	f := NewFallback(primary, secondary, quietLogger())

	_, err := f.Complete(context.Background(), Request{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(secondary.reqs) != 0 {
		t.Error("secondary should not be called")
	}
	if f.Name() != "primary" {
		t.Errorf("expected primary name, got %q", f.Name())
	}
}

func TestPing(t *testing.T) {
	p := &recordingProvider{reply: "  pong\n"}
	out, err := Ping(context.Background(), p)
	if err != nil || out != "pong" {
		t.Fatalf("Ping = %q, %v", out, err)
	}

	empty := &recordingProvider{reply: " "}
	if _, err := Ping(context.Background(), empty); err == nil {
		t.Fatal("expected error for empty reply")
	}
}

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, nil)
	}
	stats.Record(50*time.Millisecond, errors.New("x"))

	snap := stats.Snapshot()
	if snap.Calls != 6 || snap.Errors != 1 {
		t.Fatalf("expected 6 calls / 1 error, got %d / %d", snap.Calls, snap.Errors)
	}
	if snap.MinMs != 50 || snap.MaxMs != 500 {
		t.Fatalf("expected min=50 max=500, got %d %d", snap.MinMs, snap.MaxMs)
	}
	if snap.P50Ms != 250 {
		t.Fatalf("expected p50=250, got %f", snap.P50Ms)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Unix(1000, 0)
	stats := NewStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(10*time.Millisecond, nil)
	now = now.Add(2 * time.Minute)
	if snap := stats.Snapshot(); snap.Calls != 0 {
		t.Fatalf("expected pruned window, got %d calls", snap.Calls)
	}
	stats.Record(-time.Second, nil)
	if snap := stats.Snapshot(); snap.Calls != 1 || snap.MinMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}

func TestInstrumentRecordsCalls(t *testing.T) {
	stats := NewStats(time.Hour)
	p := Instrument(&recordingProvider{name: "fake", err: errors.New("down")}, stats)
	if p.Name() != "fake" {
		t.Errorf("expected wrapped name, got %q", p.Name())
	}
	_, _ = p.Complete(context.Background(), Request{})
	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.Errors != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !strings.Contains((&RequestError{Provider: "x", StatusCode: 502, Body: "bad"}).Error(), "502") {
		t.Error("request error should mention status")
	}
}
