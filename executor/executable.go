package executor

import (
	"fmt"
	"time"

	"github.com/patternql/querycore/annotations"
	"github.com/patternql/querycore/compiled"
)

// Env bundles the capabilities step executors need beyond the
// SortedIterator/Row plumbing already in this package: concept lookups
// for constraint checks, expression evaluation, and function invocation.
// One Env is shared across an entire query, including every disjunction
// branch and negation's inner executable; a query owns its executor
// graph and there is no cross-query sharing.
type Env struct {
	Source    InstructionSource
	Checker   CheckEvaluator
	Evaluator Expressioner
	Invoker   FunctionInvoker

	// BatchSize bounds how many rows an Intersection step buffers before
	// checking Interrupt again. Defaults to 256 if <= 0.
	BatchSize int

	// Collector receives step/query lifecycle events if non-nil.
	Collector *annotations.Collector
}

func (e Env) batchSize() int {
	if e.BatchSize > 0 {
		return e.BatchSize
	}
	return 256
}

func (e Env) collector() *annotations.Collector {
	if e.Collector != nil {
		return e.Collector
	}
	return annotations.NewCollector(nil)
}

// Execute runs exec's steps in order over input, threading each step's
// output rows into the next. Cancellation is checked between steps as
// well as between rows within a step.
func Execute(exec *compiled.MatchExecutable, env Env, input []Row, interrupt Interrupt) ([]Row, error) {
	collector := env.collector()
	start := time.Now()
	collector.Add(annotations.Event{Name: annotations.QueryInvoked, Start: start})

	rows, err := executeSteps(exec, env, input, interrupt)

	if err != nil {
		collector.AddTiming(annotations.QueryComplete, start, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return nil, err
	}
	collector.AddTiming(annotations.QueryComplete, start, map[string]interface{}{
		"success":    true,
		"rows.count": len(rows),
	})
	return rows, nil
}

func executeSteps(exec *compiled.MatchExecutable, env Env, input []Row, interrupt Interrupt) ([]Row, error) {
	rows := input
	for _, step := range exec.Steps {
		if interrupt.Cancelled() {
			return rows, nil
		}
		var err error
		rows, err = executeStep(step, env, rows, interrupt)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func executeStep(step compiled.Step, env Env, input []Row, interrupt Interrupt) ([]Row, error) {
	switch step.Kind {
	case compiled.StepIntersection:
		return runIntersectionStep(step, env, input, interrupt)
	case compiled.StepCheck:
		return runCheckStep(step, env, input)
	case compiled.StepExpressionAssign:
		return runAssignStep(step, env, input)
	case compiled.StepFunctionCall:
		return runFunctionCallStep(step, env, input)
	case compiled.StepNestedDisjunction:
		return runDisjunctionStep(step, env, input, interrupt)
	case compiled.StepNestedNegation:
		return runNegationStep(step, env, input, interrupt)
	case compiled.StepUnsatisfiable:
		return nil, nil
	default:
		return nil, fmt.Errorf("executor: unknown step kind %v", step.Kind)
	}
}

// runIntersectionStep drains an IntersectionExecutor for every row the
// step produces, applying any trivial checks stashed alongside the
// step's joined members (e.g. a Comparison that became fully bound while
// this step's instructions were still open) before projecting onto the
// step's SelectedOutputs.
func runIntersectionStep(step compiled.Step, env Env, input []Row, interrupt Interrupt) ([]Row, error) {
	collector := env.collector()
	collector.Add(annotations.Event{Name: annotations.StepOpened, Data: map[string]interface{}{"join.var": step.SortVariable}})

	ex, err := NewIntersectionExecutor(step, env.Source, input, collector)
	if err != nil {
		return nil, err
	}
	defer ex.Close()

	var out []Row
	size := env.batchSize()
	for {
		batch, more, err := ex.NextBatch(size, interrupt)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			pass := true
			for _, instr := range step.Checks {
				ok, err := env.Checker.Check(instr, r.Values)
				if err != nil {
					return nil, &ConceptReadError{Detail: "intersection step stash " + instr.Kind.String(), Cause: err}
				}
				if !ok {
					pass = false
					break
				}
			}
			if pass {
				out = append(out, projectSelected(r, step.SelectedOutputs))
			}
		}
		if !more || interrupt.Cancelled() {
			break
		}
	}

	collector.Add(annotations.Event{Name: annotations.StepClosed, Data: map[string]interface{}{
		"pattern.count": len(step.Instructions),
		"rows.in":       len(input),
		"rows.out":      len(out),
	}})
	return out, nil
}

// runCheckStep passes through rows whose check instructions all hold.
func runCheckStep(step compiled.Step, env Env, input []Row) ([]Row, error) {
	out := make([]Row, 0, len(input))
	for _, r := range input {
		pass := true
		for _, instr := range step.Checks {
			ok, err := env.Checker.Check(instr, r.Values)
			if err != nil {
				return nil, &ConceptReadError{Detail: "check step " + instr.Kind.String(), Cause: err}
			}
			if !ok {
				pass = false
				break
			}
		}
		if pass {
			out = append(out, projectSelected(r, step.SelectedOutputs))
		}
	}
	return out, nil
}

// runAssignStep evaluates the step's expression over each row. A failed
// evaluation is a per-row execution error, which propagates and aborts
// the query rather than silently dropping the row.
func runAssignStep(step compiled.Step, env Env, input []Row) ([]Row, error) {
	out := make([]Row, 0, len(input))
	for _, r := range input {
		v, err := env.Evaluator.Evaluate(step.Expression, r.Values)
		if err != nil {
			return nil, &ExpressionEvaluateError{Detail: step.Expression.Text, Cause: err}
		}
		row := r.Values.Clone()
		row[step.Expression.Output] = v
		out = append(out, projectSelected(Row{Values: row, Multiplicity: r.Multiplicity, Provenance: r.Provenance}, step.SelectedOutputs))
	}
	return out, nil
}

// runFunctionCallStep invokes the step's function over each row, binding
// every output variable the function returns.
func runFunctionCallStep(step compiled.Step, env Env, input []Row) ([]Row, error) {
	out := make([]Row, 0, len(input))
	for _, r := range input {
		bindings, err := env.Invoker.Invoke(step.Function, r.Values)
		if err != nil {
			return nil, &ExpressionEvaluateError{Detail: step.Function.FnID, Cause: err}
		}
		row := r.Values.Clone()
		for k, v := range bindings {
			row[k] = v
		}
		out = append(out, projectSelected(Row{Values: row, Multiplicity: r.Multiplicity, Provenance: r.Provenance}, step.SelectedOutputs))
	}
	return out, nil
}

// runDisjunctionStep executes every branch's own planned sub-executable
// against each input row in turn, concatenating their output rows.
// Duplicates across branches are intentionally not suppressed here;
// distinctness is the caller's concern. Input-row order is preserved
// first, branch order second.
func runDisjunctionStep(step compiled.Step, env Env, input []Row, interrupt Interrupt) ([]Row, error) {
	var out []Row
	for _, r := range input {
		for branchIdx, branch := range step.Disjunction.Branches {
			if interrupt.Cancelled() {
				return out, nil
			}
			branchRows, err := Execute(branch.Executable, env, []Row{r}, interrupt)
			if err != nil {
				return nil, err
			}
			for _, br := range branchRows {
				br.Provenance = branchIdx
				out = append(out, projectSelected(br, step.Disjunction.SelectedOutputs))
			}
		}
	}
	return out, nil
}

// runNegationStep succeeds (passes the row through) iff the negation's
// inner executable produces zero rows for that row alone.
func runNegationStep(step compiled.Step, env Env, input []Row, interrupt Interrupt) ([]Row, error) {
	out := make([]Row, 0, len(input))
	for _, r := range input {
		if interrupt.Cancelled() {
			return out, nil
		}
		innerRows, err := Execute(step.Negation.Inner, env, []Row{r}, interrupt)
		if err != nil {
			return nil, err
		}
		if len(innerRows) == 0 {
			out = append(out, projectSelected(r, step.SelectedOutputs))
		}
	}
	return out, nil
}
