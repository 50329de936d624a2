package ast

import (
	"encoding/json"
)

// Printer implements Visitor and builds a JSON-friendly representation of
// the tree using maps and slices, mirroring the teacher's astPrinter.
type Printer struct{}

func (p Printer) VisitNoop(n *Noop) any {
	return map[string]any{"type": "Noop"}
}

func (p Printer) VisitCpd(n *Cpd) any {
	children := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c.Accept(p))
	}
	return map[string]any{"type": "Cpd", "children": children}
}

func (p Printer) VisitInt(n *Int) any {
	return map[string]any{"type": "Int", "value": n.Value}
}

func (p Printer) VisitChar(n *Char) any {
	return map[string]any{"type": "Char", "value": n.Value}
}

func (p Printer) VisitStr(n *Str) any {
	return map[string]any{"type": "Str", "value": n.Value}
}

func (p Printer) VisitVar(n *Var) any {
	return map[string]any{"type": "Var", "name": n.Name}
}

func (p Printer) VisitVardef(n *Vardef) any {
	return map[string]any{
		"type":  "Vardef",
		"name":  n.Name.Name,
		"dtype": n.Dtype.String(),
		"init":  n.Init.Accept(p),
	}
}

func (p Printer) VisitFdef(n *Fdef) any {
	params := make([]any, 0, len(n.Params))
	for _, param := range n.Params {
		params = append(params, param.Accept(p))
	}
	return map[string]any{
		"type":         "Fdef",
		"name":         n.Name,
		"params":       params,
		"return_dtype": n.ReturnDtype.String(),
		"body":         n.Body.Accept(p),
	}
}

func (p Printer) VisitFcall(n *Fcall) any {
	args := make([]any, 0, len(n.Args))
	for _, arg := range n.Args {
		args = append(args, arg.Accept(p))
	}
	return map[string]any{"type": "Fcall", "name": n.Name, "args": args}
}

func (p Printer) VisitReturn(n *Return) any {
	return map[string]any{"type": "Return", "value": n.Value.Accept(p)}
}

func (p Printer) VisitIf(n *If) any {
	return map[string]any{
		"type": "If",
		"cond": n.Cond.Accept(p),
		"body": n.Body.Accept(p),
	}
}

func (p Printer) VisitWhile(n *While) any {
	return map[string]any{
		"type": "While",
		"cond": n.Cond.Accept(p),
		"body": n.Body.Accept(p),
	}
}

func (p Printer) VisitFor(n *For) any {
	return map[string]any{
		"type": "For",
		"init": n.Init.Accept(p),
		"cond": n.Cond.Accept(p),
		"inc":  n.Inc.Accept(p),
		"body": n.Body.Accept(p),
	}
}

func (p Printer) VisitBinop(n *Binop) any {
	return map[string]any{
		"type":     "Binop",
		"operator": string(n.Op),
		"left":     n.Left.Accept(p),
		"right":    n.Right.Accept(p),
	}
}

func (p Printer) VisitUnop(n *Unop) any {
	return map[string]any{
		"type":     "Unop",
		"operator": string(n.Op),
		"right":    n.Right.Accept(p),
	}
}

func (p Printer) VisitStruct(n *Struct) any {
	fields := make([]any, 0, len(n.Fields))
	for _, f := range n.Fields {
		fields = append(fields, f.Accept(p))
	}
	return map[string]any{"type": "Struct", "name": n.Name, "fields": fields}
}

func (p Printer) VisitInitList(n *InitList) any {
	fields := make([]any, 0, len(n.Fields))
	for _, f := range n.Fields {
		fields = append(fields, map[string]any{
			"name":  f.Name,
			"value": f.Value.Accept(p),
		})
	}
	return map[string]any{
		"type":   "InitList",
		"dtype":  n.Dtype.String(),
		"fields": fields,
	}
}

// PrintJSON renders root as a prettified JSON string.
func PrintJSON(root Node) (string, error) {
	printer := Printer{}
	bytes, err := json.MarshalIndent(root.Accept(printer), "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
