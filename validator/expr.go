package validator

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrCompile is returned when an expression validator does not compile.
var ErrCompile = errors.New("validator: invalid expression")

// exprEnv is the environment expression validators are evaluated in.
type exprEnv struct {
	Value any `expr:"value"`
}

// Expr compiles an expr-lang boolean expression into a validator. The
// property value is available to the expression as `value`.
//
// If message is empty, failures read "<value> does not satisfy <expression>".
func Expr(expression, message string) (Func, error) {
	program, err := expr.Compile(expression, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, expression, err)
	}

	return exprFunc(program, expression, message), nil
}

func exprFunc(program *vm.Program, expression, message string) Func {
	return func(value any) error {
		out, err := expr.Run(program, exprEnv{Value: value})
		if err != nil {
			return fmt.Errorf("could not evaluate %s for %v: %w", expression, value, err)
		}

		if ok, _ := out.(bool); ok {
			return nil
		}

		if message != "" {
			return errors.New(message)
		}

		return fmt.Errorf("%v does not satisfy %s", value, expression)
	}
}
