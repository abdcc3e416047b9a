// Package service sits between the transports and the scene generator: it
// validates DESCRIBE payloads, maps them onto scene observations, runs the
// generator and hands the result to the fact log and the episode index.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"scenefacts.ai/internal/protocol"
	"scenefacts.ai/internal/scene"
	"scenefacts.ai/internal/scene/frame"
	"scenefacts.ai/internal/scene/grid"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrVersion    = errors.New("unsupported protocol version")
)

// FactLogEntry is one DESCRIBE/FACTS round trip as written to the fact log.
type FactLogEntry struct {
	Step       uint64               `json:"step"`
	Substrate  string               `json:"substrate"`
	RecordedAt string               `json:"recorded_at"`
	Request    protocol.DescribeMsg `json:"request"`
	Facts      map[string][]string  `json:"facts"`
}

// StepRecord summarises one step for the episode index.
type StepRecord struct {
	Step    uint64
	Agents  int
	Removed int
	Facts   int
}

type FactSink interface {
	WriteFacts(FactLogEntry) error
}

type StepIndex interface {
	RecordStep(StepRecord)
}

type Options struct {
	// Players maps numeric agent keys ("0", "1", ...) to names.
	Players   []string
	LocalSelf grid.Point
	// RemovedPrefix marks observation text that is a removal notice rather
	// than a grid. Defaults to scene.RemovedPrefix.
	RemovedPrefix string

	Facts  FactSink
	Index  StepIndex
	Logger *log.Logger
	Now    func() time.Time
}

type Service struct {
	gen  *scene.Generator
	opts Options
}

func New(gen *scene.Generator, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RemovedPrefix == "" {
		opts.RemovedPrefix = scene.RemovedPrefix
	}
	return &Service{gen: gen, opts: opts}
}

func (s *Service) Generator() *scene.Generator { return s.gen }

// Describe handles a raw DESCRIBE payload.
func (s *Service) Describe(ctx context.Context, raw []byte) (protocol.FactsMsg, error) {
	msg, err := protocol.ValidateDescribe(raw)
	if err != nil {
		return protocol.FactsMsg{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return s.DescribeMsg(ctx, msg)
}

// DescribeMsg handles an already decoded DESCRIBE message.
func (s *Service) DescribeMsg(ctx context.Context, msg protocol.DescribeMsg) (protocol.FactsMsg, error) {
	if msg.ProtocolVersion != protocol.Version {
		return protocol.FactsMsg{}, fmt.Errorf("%w: %q", ErrVersion, msg.ProtocolVersion)
	}
	batch, err := Decode(msg, DecodeOptions{Players: s.opts.Players, LocalSelf: s.opts.LocalSelf, RemovedPrefix: s.opts.RemovedPrefix})
	if err != nil {
		return protocol.FactsMsg{}, err
	}
	facts, err := s.gen.Describe(ctx, batch)
	if err != nil {
		return protocol.FactsMsg{}, fmt.Errorf("step %d: %w", msg.Step, err)
	}
	out := protocol.FactsMsg{
		Type:            protocol.TypeFacts,
		ProtocolVersion: protocol.Version,
		Step:            msg.Step,
		Facts:           facts,
	}
	s.record(msg, batch, facts)
	return out, nil
}

func (s *Service) record(msg protocol.DescribeMsg, batch map[string]scene.AgentObservation, facts map[string][]string) {
	if s.opts.Facts != nil {
		entry := FactLogEntry{
			Step:       msg.Step,
			Substrate:  string(s.gen.Kind()),
			RecordedAt: s.opts.Now().UTC().Format(time.RFC3339Nano),
			Request:    msg,
			Facts:      facts,
		}
		if err := s.opts.Facts.WriteFacts(entry); err != nil && s.opts.Logger != nil {
			s.opts.Logger.Printf("fact log: step=%d: %v", msg.Step, err)
		}
	}
	if s.opts.Index != nil {
		rec := StepRecord{Step: msg.Step, Agents: len(facts)}
		for id, fs := range facts {
			rec.Facts += len(fs)
			if batch[id].Removed {
				rec.Removed++
			}
		}
		s.opts.Index.RecordStep(rec)
	}
}

type DecodeOptions struct {
	Players       []string
	LocalSelf     grid.Point
	RemovedPrefix string
}

// Decode maps wire observations onto scene observations. Numeric keys are
// replaced by player names when a name exists for that index.
func Decode(msg protocol.DescribeMsg, opts DecodeOptions) (map[string]scene.AgentObservation, error) {
	out := make(map[string]scene.AgentObservation, len(msg.Observations))
	for key, o := range msg.Observations {
		name := AgentName(key, opts.Players)
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: agent %q given twice", ErrBadRequest, name)
		}
		obs := scene.AgentObservation{
			LocalSelf:   opts.LocalSelf,
			GlobalSelf:  grid.FromArray(o.GlobalPosition),
			Orientation: frame.Orientation(o.Orientation),
			Removed:     o.Removed,
		}
		if o.LocalPosition != nil {
			obs.LocalSelf = grid.FromArray(*o.LocalPosition)
		}
		if o.Removed {
			if opts.RemovedPrefix != "" && strings.HasPrefix(o.Observation, opts.RemovedPrefix) {
				obs.RemovedMessage = o.Observation
			}
			out[name] = obs
			continue
		}
		g, err := grid.Parse(o.Observation)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		obs.Grid = g
		out[name] = obs
	}
	return out, nil
}

func AgentName(key string, players []string) string {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(players) {
		return key
	}
	return players[i]
}

// ErrorCode maps a Describe error onto a wire error code.
func ErrorCode(err error) string {
	var fe *grid.FormatError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVersion):
		return protocol.ErrProtoVersion
	case errors.Is(err, ErrBadRequest):
		return protocol.ErrProtoBadRequest
	case errors.As(err, &fe):
		return protocol.ErrBadGrid
	case errors.Is(err, frame.ErrInvalidOrientation):
		return protocol.ErrBadOrientation
	}
	return protocol.ErrInternal
}
