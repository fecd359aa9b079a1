package convert

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/cognicore/concord/pkg/concord/schema"
)

// ptbNode is one bracketed node: "(" label? (word | node*) ")".
type ptbNode struct {
	Label    string     `"(" @Atom?`
	Word     *string    `( @Atom`
	Children []*ptbNode `| @@* ) ")"`
}

var ptbLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Atom", Pattern: `[^\s()]+`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var ptbParser = participle.MustBuild[ptbNode](
	participle.Lexer(ptbLexer),
	participle.Elide("Whitespace"),
)

// rootTag names the outermost node when the tree writes it without a label,
// as in "( (S ...))".
const rootTag = "ROOT"

// ParseTree parses a PTB bracketed tree into constituents in pre-order. Each
// preterminal covers exactly one token; the leaf words themselves are not
// constituents. It returns the constituents and the number of leaves.
func ParseTree(tree string) ([]schema.Constituent, int, error) {
	root, err := ptbParser.ParseString("", tree)
	if err != nil {
		return nil, 0, fmt.Errorf("parse tree: %w", err)
	}
	if root.Label == "" {
		root.Label = rootTag
	}
	var (
		out    []schema.Constituent
		leaves int
	)
	var walk func(n *ptbNode) int
	walk = func(n *ptbNode) int {
		id := len(out)
		out = append(out, schema.Constituent{ID: id, Tag: n.Label, HeadChild: -1, Start: leaves})
		if n.Word != nil {
			leaves++
		} else {
			children := make([]int, 0, len(n.Children))
			for _, c := range n.Children {
				children = append(children, walk(c))
			}
			out[id].Children = children
		}
		out[id].End = leaves
		return id
	}
	walk(root)
	return out, leaves, nil
}
