package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tarowe/go-ews/ews/query"
	"github.com/tarowe/go-ews/ews/restriction"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
)

// ExplainCmd compiles filter expressions offline and prints the resulting
// wire restriction, so lookups can be debugged without a mailbox.
var ExplainCmd = &cobra.Command{
	Use:   "explain <field__operator=value> ...",
	Short: "Compile filter expressions and show the wire restriction",
	Long: `explain — Compile filter expressions into a wire restriction

Each argument is one lookup in field__operator=value form; multiple
arguments are AND-combined. Values are parsed as bool, integer, RFC 3339
datetime or string, in that order. Comma-separated values form a set for
in and contains lookups.

Examples:
  ewsq explain subject__icontains=report
  ewsq explain is_read=false size__gte=1000
  ewsq explain importance__in=1,2 subject__startswith=RE:`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

var explainNegate bool

func init() {
	ExplainCmd.Flags().BoolVar(&explainNegate, "not", false, "Negate the combined expression")
}

func runExplain(cmd *cobra.Command, args []string) error {
	var q *query.Q
	for _, arg := range args {
		spec, rawValue, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("argument %q is not in field__operator=value form", arg)
		}
		q = q.CombineAnd(query.Where(spec, parseValue(rawValue)))
	}
	if explainNegate {
		q = q.Negate()
	}

	pterm.Info.Printf("Expression: %s\n", q.String())

	compiled, err := restriction.Compile(q, schema.DefaultItemSchema())
	if err != nil {
		pterm.Error.Printf("Compilation failed: %v\n", err)
		return err
	}

	switch {
	case compiled == nil:
		pterm.Success.Println("Matches everything: no restriction is sent")
	case compiled.Kind == types.RestrictionNever:
		pterm.Success.Println("Matches nothing: the query never dispatches")
	default:
		root := pterm.TreeNode{Text: "Restriction", Children: []pterm.TreeNode{treeNode(compiled)}}
		if err := pterm.DefaultTree.WithRoot(root).Render(); err != nil {
			return err
		}
	}
	return nil
}

// parseValue guesses the operand type. Comma-separated input becomes a set,
// each element parsed independently.
func parseValue(raw string) any {
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		set := make([]any, len(parts))
		for i, p := range parts {
			set[i] = parseScalar(strings.TrimSpace(p))
		}
		return set
	}
	return parseScalar(raw)
}

func parseScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return raw
}

func treeNode(r *types.Restriction) pterm.TreeNode {
	switch r.Kind {
	case types.RestrictionAnd:
		return branch("And", r.Children)
	case types.RestrictionOr:
		return branch("Or", r.Children)
	case types.RestrictionNot:
		return branch("Not", r.Children)
	case types.RestrictionNever:
		return pterm.TreeNode{Text: "Never"}
	default:
		return pterm.TreeNode{Text: describeComparison(r)}
	}
}

func branch(label string, children []*types.Restriction) pterm.TreeNode {
	node := pterm.TreeNode{Text: label}
	for _, child := range children {
		node.Children = append(node.Children, treeNode(child))
	}
	return node
}

func describeComparison(r *types.Restriction) string {
	if r.Op != types.OpContainment {
		return fmt.Sprintf("%s %s %q", r.Op, r.FieldURI, r.Value)
	}
	mode := "FullString"
	switch r.Mode {
	case types.MatchPrefix:
		mode = "Prefixed"
	case types.MatchSubstring:
		mode = "Substring"
	}
	caseMode := "Sensitive"
	if r.IgnoreCase {
		caseMode = "IgnoreCase"
	}
	return fmt.Sprintf("Contains(%s, %s) %s %q", mode, caseMode, r.FieldURI, r.Value)
}
