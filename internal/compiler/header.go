package compiler

import (
	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/ir"
)

// HeaderLoader populates a compilation context from a story header.
type HeaderLoader struct {
	Context *CompilationContext
}

// NewHeaderLoader returns a loader writing into ctx.
func NewHeaderLoader(ctx *CompilationContext) *HeaderLoader {
	return &HeaderLoader{Context: ctx}
}

// LoadHeader registers all alias types, then all builtin functions.
func (l *HeaderLoader) LoadHeader(h *ast.Header) {
	for i := range h.Aliases {
		l.LoadAlias(&h.Aliases[i])
	}
	for i := range h.Functions {
		l.LoadFunction(&h.Functions[i])
	}
}

// LoadAlias registers one alias type.
func (l *HeaderLoader) LoadAlias(alias *ast.TypeAlias) bool {
	t := &ir.ValueType{
		TypeID:          alias.TypeID,
		IntrinsicTypeID: ir.IntrinsicType(alias.AliasID),
		Name:            alias.TypeName,
	}
	return l.Context.RegisterType(t)
}

// LoadFunction registers one builtin function. Parameters with unknown
// types are reported and dropped; the rest of the signature is kept.
func (l *HeaderLoader) LoadFunction(fn *ast.Function) bool {
	params := make([]ir.FunctionParam, 0, len(fn.Params))
	for _, p := range fn.Params {
		typ := l.Context.LookupType(p.Type)
		if typ == nil {
			l.Context.Log.Error(nil, ErrUnresolvedTypeInSignature,
				"Function \"%s(%d)\" argument \"%s\" has unresolved type \"%s\"",
				fn.Name, len(fn.Params), p.Name, p.Type)
			continue
		}

		params = append(params, ir.FunctionParam{
			Direction: p.Direction,
			Type:      typ,
			Name:      p.Name,
		})
	}

	sig := &ir.FunctionSignature{
		Type:       fn.Type,
		Name:       fn.Name,
		Params:     params,
		FullyTyped: true,
	}

	builtin := &ir.BuiltinFunction{
		Signature: sig,
		Meta1:     fn.Meta1,
		Meta2:     fn.Meta2,
		Meta3:     fn.Meta3,
		Meta4:     fn.Meta4,
	}

	return l.Context.RegisterFunction(sig, builtin)
}
