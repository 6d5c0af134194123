package substitute

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

// evalEnv is the scope $(eval ...) expressions run in (spec.md §4.H.4):
// math helpers plus the constant pi. evalExpr does not type-check an
// expression against it and does not disable expr-lang's own builtin
// functions, which stay callable; a name outside this set evaluates to nil,
// so an expression that computes with one (e.g. "undefined_name + 1")
// fails when it runs.
var evalEnv = map[string]interface{}{
	"abs":   math.Abs,
	"min":   math.Min,
	"max":   math.Max,
	"pow":   math.Pow,
	"round": math.Round,
	"int":   func(v float64) int { return int(v) },
	"float": func(v float64) float64 { return v },
	"str":   func(v interface{}) string { return fmt.Sprint(v) },
	"pi":    math.Pi,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"sqrt":  math.Sqrt,
	"atan2": math.Atan2,
}

// evalExpr evaluates a $(eval ...) expression body in evalEnv, returning
// its string form. A compile or runtime error is the caller's cue to leave
// the form in place and emit a warning (spec.md §4.H.4).
func evalExpr(body string) (string, error) {
	out, err := expr.Eval(body, evalEnv)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(out), nil
}
