// Package workflow implements the orchestration core of the requirement
// quality gate: a compiled directed-acyclic pipeline of stages executed once
// per requirement packet over an exclusive run state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/reqgate/internal/agents/scoring"
	"github.com/metalagman/reqgate/internal/agents/structuring"
	"github.com/metalagman/reqgate/internal/gate"
	"github.com/metalagman/reqgate/internal/guardrail"
	"github.com/metalagman/reqgate/internal/llm"
	"github.com/metalagman/reqgate/internal/requirement"
	"github.com/metalagman/reqgate/internal/rubric"
)

// Stage node names. These label timings, error logs, and wrapped errors.
const (
	StageGuardrail      = "guardrail"
	StageStructuring    = "structuring"
	StageStructureCheck = "structure_check"
	StageFallback       = "fallback"
	StageScoring        = "scoring"
	StageGate           = "gate"
)

// Branch labels returned by the routing function after structuring.
const (
	BranchProceed  = "proceed"
	BranchFallback = "fallback"
)

// nodeFunc is a pipeline stage: full state in, updated state out. Only the
// guardrail returns an error; every other stage absorbs failures into the
// state.
type nodeFunc func(ctx context.Context, s State) (State, error)

// routeFunc inspects the just-produced state and picks a branch label.
type routeFunc func(s State) string

// Deps are the orchestrator's collaborators, injected explicitly.
type Deps struct {
	Gateway   llm.ModelGateway
	Rubric    *rubric.Loader
	Guardrail *guardrail.Guardrail
	// Models is the preference-ordered model list for the multi-model
	// fallback loop. Empty falls back to a single unnamed default model.
	Models []string
}

// Workflow is a compiled pipeline. Compile once, run many times; each run
// gets a fresh State.
type Workflow struct {
	cfg  Config
	deps Deps

	structurer *structuring.Agent
	scorer     *scoring.Agent
	hardGate   *gate.HardGate

	entry    string
	nodes    map[string]nodeFunc
	edges    map[string]string
	routers  map[string]routeFunc
	branches map[string]map[string]string
}

// New compiles the workflow graph for the given config.
func New(cfg Config, deps Deps) (*Workflow, error) {
	cfg = cfg.normalized()
	if deps.Gateway == nil {
		return nil, fmt.Errorf("workflow requires an llm gateway")
	}
	if deps.Rubric == nil {
		return nil, fmt.Errorf("workflow requires a rubric loader")
	}
	if cfg.EnableGuardrail && deps.Guardrail == nil {
		return nil, fmt.Errorf("guardrail enabled but no guardrail provided")
	}
	models := deps.Models
	if len(models) == 0 {
		models = []string{""}
	}

	w := &Workflow{
		cfg:        cfg,
		deps:       deps,
		structurer: structuring.New(deps.Gateway, models, cfg.retryPolicy(cfg.StructuringTimeout)),
		scorer:     scoring.New(deps.Gateway, deps.Rubric, models, cfg.retryPolicy(cfg.LLMTimeout)),
		hardGate:   gate.New(deps.Rubric),
		nodes:      map[string]nodeFunc{},
		edges:      map[string]string{},
		routers:    map[string]routeFunc{},
		branches:   map[string]map[string]string{},
	}
	w.compile()
	return w, nil
}

// compile builds the node set and edge tables from the config toggles.
// Scoring and gate are always the tail; the conditional edge out of
// structuring is the only data-dependent branch in the graph.
func (w *Workflow) compile() {
	cfg := w.cfg

	if cfg.EnableGuardrail {
		w.nodes[StageGuardrail] = w.guardrailNode
	}
	if cfg.EnableStructuring {
		w.nodes[StageStructuring] = w.structuringNode
		w.nodes[StageStructureCheck] = w.structureCheckNode
		if cfg.EnableFallback {
			w.nodes[StageFallback] = w.fallbackNode
		}
	}
	w.nodes[StageScoring] = w.scoringNode
	w.nodes[StageGate] = w.gateNode

	switch {
	case cfg.EnableGuardrail && cfg.EnableStructuring:
		w.entry = StageGuardrail
		w.edges[StageGuardrail] = StageStructuring
		w.wireStructuring()
	case cfg.EnableGuardrail:
		w.entry = StageGuardrail
		w.edges[StageGuardrail] = StageScoring
	case cfg.EnableStructuring:
		w.entry = StageStructuring
		w.wireStructuring()
	default:
		w.entry = StageScoring
	}

	w.edges[StageScoring] = StageGate
	w.edges[StageGate] = ""
}

func (w *Workflow) wireStructuring() {
	if w.cfg.EnableFallback {
		w.routers[StageStructuring] = shouldFallback
		w.branches[StageStructuring] = map[string]string{
			BranchProceed:  StageStructureCheck,
			BranchFallback: StageFallback,
		}
		w.edges[StageFallback] = StageScoring
	} else {
		w.edges[StageStructuring] = StageStructureCheck
	}
	w.edges[StageStructureCheck] = StageScoring
}

// shouldFallback is the routing function for the conditional edge: proceed
// iff the structuring stage just produced a draft. Pure, evaluated fresh
// each run.
func shouldFallback(s State) string {
	if s.Draft != nil {
		return BranchProceed
	}
	return BranchFallback
}

// Run executes the compiled graph once over a fresh state and returns the
// terminal state. A guardrail rejection propagates as *RejectionError; any
// other failure escaping stage handling is wrapped as *ExecutionError.
func (w *Workflow) Run(ctx context.Context, packet requirement.Packet) (State, error) {
	started := time.Now()
	log.Info().
		Str("project_key", packet.ProjectKey).
		Str("ticket_type", string(packet.TicketType)).
		Msg("starting workflow run")

	state := NewState(packet)

	current := w.entry
	steps := 0
	for current != "" {
		steps++
		if steps > len(w.nodes) {
			return state, &ExecutionError{Stage: "workflow", Err: fmt.Errorf("graph did not terminate after %d steps", steps)}
		}

		node, ok := w.nodes[current]
		if !ok {
			return state, &ExecutionError{Stage: "workflow", Err: fmt.Errorf("unknown stage %q", current)}
		}

		stageStart := time.Now()
		next, err := node(ctx, state)
		elapsed := time.Since(stageStart).Seconds()
		next.ExecutionTimes[current] = elapsed
		state = next

		if err != nil {
			var rejection *RejectionError
			if errors.As(err, &rejection) {
				log.Error().
					Str("reason", string(rejection.Reason)).
					Msg("workflow aborted by guardrail")
				return state, rejection
			}
			return state, &ExecutionError{Stage: "workflow", Err: err}
		}

		current = w.next(current, state)
	}

	log.Info().
		Float64("total_seconds", time.Since(started).Seconds()).
		Bool("fallback_activated", state.FallbackActivated).
		Msg("workflow run completed")
	return state, nil
}

// next resolves the outgoing edge for a node, consulting the routing
// function on the conditional edge.
func (w *Workflow) next(node string, s State) string {
	if router, ok := w.routers[node]; ok {
		label := router(s)
		return w.branches[node][label]
	}
	return w.edges[node]
}

// Entry returns the compiled entry node name.
func (w *Workflow) Entry() string { return w.entry }

// HasNode reports whether the compiled graph contains a node.
func (w *Workflow) HasNode(name string) bool {
	_, ok := w.nodes[name]
	return ok
}

// Run is the package-level entry point: it compiles a workflow for cfg and
// executes it over the packet.
func Run(ctx context.Context, packet requirement.Packet, cfg Config, deps Deps) (State, error) {
	w, err := New(cfg, deps)
	if err != nil {
		return NewState(packet), &ExecutionError{Stage: "workflow", Err: err}
	}
	return w.Run(ctx, packet)
}
