// Package filter parses CEL filter expressions used by the question list
// API and lowers them onto store find conditions. Only a small expression
// vocabulary is accepted; anything else is rejected at parse time rather
// than silently ignored.
package filter

import (
	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/store"
)

// Supported expressions:
//
//	subject == "math"
//	subject in ["math", "physics"]
//	tag in ["geometry", "calculus"]
//	mastery_level >= 2
//	mastery_level <= 4
//	content.contains("triangle")
//
// joined with &&.
var env = func() *cel.Env {
	e, err := cel.NewEnv(
		cel.Variable("subject", cel.StringType),
		cel.Variable("tag", cel.StringType),
		cel.Variable("mastery_level", cel.IntType),
		cel.Variable("content", cel.StringType),
	)
	if err != nil {
		panic(err)
	}
	return e
}()

// Apply parses expression and folds its constraints into find. The find
// condition is mutated in place; on error it is left untouched.
func Apply(expression string, find *store.FindQuestion) error {
	if expression == "" {
		return nil
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return errors.Wrap(issues.Err(), "invalid filter")
	}

	next := *find
	if err := applyExpr(ast.NativeRep().Expr(), &next); err != nil {
		return err
	}
	*find = next
	return nil
}

func applyExpr(expr celast.Expr, find *store.FindQuestion) error {
	if expr.Kind() != celast.CallKind {
		return errors.Errorf("unsupported filter expression")
	}
	call := expr.AsCall()
	switch call.FunctionName() {
	case "_&&_":
		for _, arg := range call.Args() {
			if err := applyExpr(arg, find); err != nil {
				return err
			}
		}
		return nil
	case "_==_":
		return applyEquals(call, find)
	case "@in":
		return applyIn(call, find)
	case "_>=_", "_<=_":
		return applyMasteryBound(call, find)
	case "contains":
		return applyContains(call, find)
	default:
		return errors.Errorf("unsupported filter operator %q", call.FunctionName())
	}
}

func applyEquals(call celast.CallExpr, find *store.FindQuestion) error {
	ident, value, err := identAndLiteral(call)
	if err != nil {
		return err
	}
	switch ident {
	case "subject":
		s, ok := value.(string)
		if !ok {
			return errors.Errorf("subject must compare against a string")
		}
		find.Subjects = []string{s}
		return nil
	default:
		return errors.Errorf("cannot compare %q with ==", ident)
	}
}

func applyIn(call celast.CallExpr, find *store.FindQuestion) error {
	args := call.Args()
	if len(args) != 2 || args[0].Kind() != celast.IdentKind || args[1].Kind() != celast.ListKind {
		return errors.Errorf("in expects an identifier and a list literal")
	}
	ident := args[0].AsIdent()
	values := make([]string, 0, len(args[1].AsList().Elements()))
	for _, elem := range args[1].AsList().Elements() {
		if elem.Kind() != celast.LiteralKind {
			return errors.Errorf("in list must hold literals")
		}
		s, ok := elem.AsLiteral().Value().(string)
		if !ok {
			return errors.Errorf("in list must hold strings")
		}
		values = append(values, s)
	}
	switch ident {
	case "subject":
		find.Subjects = values
	case "tag":
		find.TagNames = values
	default:
		return errors.Errorf("cannot filter %q with in", ident)
	}
	return nil
}

func applyMasteryBound(call celast.CallExpr, find *store.FindQuestion) error {
	ident, value, err := identAndLiteral(call)
	if err != nil {
		return err
	}
	if ident != "mastery_level" {
		return errors.Errorf("cannot bound %q", ident)
	}
	level, ok := value.(int64)
	if !ok {
		return errors.Errorf("mastery_level must compare against an integer")
	}
	bound := int32(level)
	// A literal on the left flips the comparison direction.
	lowerBound := call.FunctionName() == "_>=_"
	if call.Args()[0].Kind() == celast.LiteralKind {
		lowerBound = !lowerBound
	}
	if lowerBound {
		find.MasteryMin = &bound
	} else {
		find.MasteryMax = &bound
	}
	return nil
}

func applyContains(call celast.CallExpr, find *store.FindQuestion) error {
	if !call.IsMemberFunction() || call.Target().Kind() != celast.IdentKind || call.Target().AsIdent() != "content" {
		return errors.Errorf("contains is only supported on content")
	}
	args := call.Args()
	if len(args) != 1 || args[0].Kind() != celast.LiteralKind {
		return errors.Errorf("contains expects one string literal")
	}
	s, ok := args[0].AsLiteral().Value().(string)
	if !ok {
		return errors.Errorf("contains expects a string literal")
	}
	find.ContentSearch = &s
	return nil
}

// identAndLiteral unpacks a binary comparison, accepting the identifier on
// either side.
func identAndLiteral(call celast.CallExpr) (string, any, error) {
	args := call.Args()
	if len(args) != 2 {
		return "", nil, errors.Errorf("comparison expects two operands")
	}
	left, right := args[0], args[1]
	if left.Kind() == celast.IdentKind && right.Kind() == celast.LiteralKind {
		return left.AsIdent(), right.AsLiteral().Value(), nil
	}
	if left.Kind() == celast.LiteralKind && right.Kind() == celast.IdentKind {
		return right.AsIdent(), left.AsLiteral().Value(), nil
	}
	return "", nil, errors.Errorf("comparison expects an identifier and a literal")
}
