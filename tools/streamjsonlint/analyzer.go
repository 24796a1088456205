package streamjsonlint

import (
	"go/ast"
	"go/constant"
	"go/token"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

const debouncePath = "github.com/deepankarm/streamjson/pkg/debounce"

// Analyzer reports classifier literals that would fail or misbehave at runtime.
var Analyzer = &analysis.Analyzer{
	Name:     "streamjsonlint",
	Doc:      "checks debounce classifier literals for overlapping, duplicate and empty event types",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
	}

	inspect.WithStack(nodeFilter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push || suppressed(stack) {
			return true
		}
		checkClassifierCall(pass, n.(*ast.CallExpr))
		return true
	})

	return nil, nil
}

// tagLit is a constant event type found in a []string literal.
type tagLit struct {
	value string
	pos   token.Pos
}

func checkClassifierCall(pass *analysis.Pass, call *ast.CallExpr) {
	fn := typeutil.StaticCallee(pass.TypesInfo, call)
	if fn == nil || fn.Pkg() == nil || fn.Pkg().Path() != debouncePath {
		return
	}
	if fn.Name() != "NewClassifier" && fn.Name() != "MustClassifier" {
		return
	}
	if len(call.Args) != 2 {
		return
	}

	immediate := stringLits(pass, call.Args[0])
	coalescible := stringLits(pass, call.Args[1])
	checkList(pass, "immediate", immediate)
	checkList(pass, "coalescible", coalescible)

	for _, c := range coalescible {
		for _, i := range immediate {
			switch {
			case c.value == i.value:
				pass.Reportf(c.pos, "event type %q is both immediate and coalescible", c.value)
			case strings.EqualFold(c.value, i.value):
				pass.Reportf(c.pos, "coalescible type %q differs from immediate type %q only in case", c.value, i.value)
			}
		}
	}
}

func checkList(pass *analysis.Pass, name string, tags []tagLit) {
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t.value == "" {
			pass.Reportf(t.pos, "empty event type in %s list", name)
			continue
		}
		if seen[t.value] {
			pass.Reportf(t.pos, "event type %q listed twice in %s", t.value, name)
		}
		seen[t.value] = true
	}
}

// stringLits returns the constant string elements of a composite literal.
// Anything else yields nil.
func stringLits(pass *analysis.Pass, expr ast.Expr) []tagLit {
	lit, ok := astutil.Unparen(expr).(*ast.CompositeLit)
	if !ok {
		return nil
	}
	var out []tagLit
	for _, elt := range lit.Elts {
		tv, ok := pass.TypesInfo.Types[elt]
		if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
			continue
		}
		out = append(out, tagLit{value: constant.StringVal(tv.Value), pos: elt.Pos()})
	}
	return out
}

// suppressed reports whether an enclosing declaration carries a
// nolint:streamjsonlint directive.
func suppressed(stack []ast.Node) bool {
	for _, n := range stack {
		var doc *ast.CommentGroup
		switch d := n.(type) {
		case *ast.FuncDecl:
			doc = d.Doc
		case *ast.GenDecl:
			doc = d.Doc
		}
		if doc == nil {
			continue
		}
		text := doc.Text()
		if strings.Contains(text, "nolint:streamjsonlint") || strings.Contains(text, "nolint:all") {
			return true
		}
	}
	return false
}
