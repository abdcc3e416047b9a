package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scenefacts.ai/internal/protocol"
	"scenefacts.ai/internal/scene"
	"scenefacts.ai/internal/scene/describe"
	"scenefacts.ai/internal/scene/grid"
)

type memSink struct {
	mu      sync.Mutex
	entries []FactLogEntry
}

func (m *memSink) WriteFacts(e FactLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type memIndex struct {
	mu    sync.Mutex
	steps []StepRecord
}

func (m *memIndex) RecordStep(r StepRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, r)
}

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	gen, err := scene.New(grid.MustParse("AA---\nA----\n---GG\n---GA"), describe.KindHarvest)
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	return New(gen, opts)
}

const describeJSON = `{
  "type": "DESCRIBE",
  "protocol_version": "1.0",
  "step": 7,
  "observations": {
    "0": {"observation": "AA---\nA#---\n---GG\n--1GA", "global_position": [1, 1], "orientation": 0, "local_position": [1, 1]},
    "1": {"observation": "There are no observations: You were taken out of the game by agent 0", "global_position": [2, 4], "orientation": 0, "removed": true},
    "walker": {"observation": "There are no observations: You were taken out of the game", "global_position": [0, 3], "orientation": 0}
  }
}`

func TestDescribe_MapsPlayersAndRecords(t *testing.T) {
	sink := &memSink{}
	idx := &memIndex{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := newService(t, Options{
		Players: []string{"alice", "bob"},
		Facts:   sink,
		Index:   idx,
		Now:     func() time.Time { return fixed },
	})

	out, err := svc.Describe(context.Background(), []byte(describeJSON))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if out.Type != protocol.TypeFacts || out.Step != 7 || out.ProtocolVersion != protocol.Version {
		t.Fatalf("unexpected header: %+v", out)
	}
	if len(out.Facts) != 3 {
		t.Fatalf("expected 3 agents, got %v", out.Facts)
	}
	if n := len(out.Facts["alice"]); n != 10 {
		t.Fatalf("alice: expected 10 facts, got %d: %q", n, out.Facts["alice"])
	}
	if got := out.Facts["bob"]; len(got) != 1 || got[0] != "There are no observations: You were taken out of the game by agent 0 at position [2, 4]" {
		t.Fatalf("bob: %q", got)
	}
	if got := out.Facts["walker"]; len(got) != 1 || got[0] != "There are no observations: You were taken out of the game at position [0, 3]" {
		t.Fatalf("walker: %q", got)
	}

	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(sink.entries))
	}
	e := sink.entries[0]
	if e.Step != 7 || e.Substrate != string(describe.KindHarvest) || e.RecordedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if len(e.Request.Observations) != 3 {
		t.Fatalf("request not kept verbatim: %+v", e.Request)
	}

	if len(idx.steps) != 1 {
		t.Fatalf("expected 1 step record, got %d", len(idx.steps))
	}
	if got := idx.steps[0]; got != (StepRecord{Step: 7, Agents: 3, Removed: 1, Facts: 12}) {
		t.Fatalf("unexpected step record: %+v", got)
	}
}

func TestDescribe_ErrorCodes(t *testing.T) {
	svc := newService(t, Options{})
	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", `{`, protocol.ErrProtoBadRequest},
		{"wrong type", `{"type":"FACTS","protocol_version":"1.0","observations":{}}`, protocol.ErrProtoBadRequest},
		{"missing orientation", `{"type":"DESCRIBE","protocol_version":"1.0","observations":{"a":{"observation":"A","global_position":[0,0]}}}`, protocol.ErrProtoBadRequest},
		{"version", `{"type":"DESCRIBE","protocol_version":"0.9","observations":{}}`, protocol.ErrProtoVersion},
		{"ragged grid", `{"type":"DESCRIBE","protocol_version":"1.0","observations":{"a":{"observation":"AAA\nA","global_position":[0,0],"orientation":0}}}`, protocol.ErrBadGrid},
		{"orientation", `{"type":"DESCRIBE","protocol_version":"1.0","observations":{"a":{"observation":"A","global_position":[0,0],"orientation":5}}}`, protocol.ErrBadOrientation},
	}
	for _, tc := range cases {
		_, err := svc.Describe(context.Background(), []byte(tc.raw))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if got := ErrorCode(err); got != tc.code {
			t.Fatalf("%s: code=%s want %s (err=%v)", tc.name, got, tc.code, err)
		}
	}
}

func TestDescribe_EmptyObservations(t *testing.T) {
	idx := &memIndex{}
	svc := newService(t, Options{Index: idx})
	out, err := svc.Describe(context.Background(), []byte(`{"type":"DESCRIBE","protocol_version":"1.0","step":1,"observations":{}}`))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(out.Facts) != 0 {
		t.Fatalf("expected no facts, got %v", out.Facts)
	}
	if len(idx.steps) != 1 || idx.steps[0].Agents != 0 {
		t.Fatalf("unexpected steps %+v", idx.steps)
	}
}

func TestDecode_DuplicateAfterMapping(t *testing.T) {
	msg := protocol.DescribeMsg{
		Observations: map[string]protocol.AgentObs{
			"0":     {Observation: "A"},
			"alice": {Observation: "A"},
		},
	}
	_, err := Decode(msg, DecodeOptions{Players: []string{"alice"}})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestDecode_LocalSelfDefaultAndOverride(t *testing.T) {
	lp := [2]int{2, 3}
	msg := protocol.DescribeMsg{
		Observations: map[string]protocol.AgentObs{
			"a": {Observation: "A", GlobalPosition: [2]int{4, 5}, Orientation: 2},
			"b": {Observation: "A", LocalPosition: &lp},
		},
	}
	batch, err := Decode(msg, DecodeOptions{LocalSelf: grid.Point{Row: 9, Col: 5}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a := batch["a"]; a.LocalSelf != (grid.Point{Row: 9, Col: 5}) || a.GlobalSelf != (grid.Point{Row: 4, Col: 5}) || a.Orientation != 2 {
		t.Fatalf("a: %+v", a)
	}
	if b := batch["b"]; b.LocalSelf != (grid.Point{Row: 2, Col: 3}) {
		t.Fatalf("b: %+v", b)
	}
}

func TestDecode_RemovedIgnoresForeignText(t *testing.T) {
	msg := protocol.DescribeMsg{
		Observations: map[string]protocol.AgentObs{
			"a": {Observation: "AAA\nA", Removed: true},
		},
	}
	batch, err := Decode(msg, DecodeOptions{RemovedPrefix: scene.RemovedPrefix})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a := batch["a"]; !a.Removed || a.RemovedMessage != "" {
		t.Fatalf("a: %+v", a)
	}
}

func TestAgentName(t *testing.T) {
	players := []string{"alice", "bob"}
	cases := map[string]string{"0": "alice", "1": "bob", "2": "2", "-1": "-1", "carol": "carol"}
	for key, want := range cases {
		if got := AgentName(key, players); got != want {
			t.Fatalf("AgentName(%q)=%q want %q", key, got, want)
		}
	}
}
