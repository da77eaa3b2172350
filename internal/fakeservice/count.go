package fakeservice

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// CountTestFunctions returns the number of pytest-collectable test functions
// in code: module-level test_* functions (sync, async or decorated) and test_*
// methods of Test* classes.
func CountTestFunctions(ctx context.Context, code []byte) (int, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return 0, fmt.Errorf("failed to parse python: %w", err)
	}
	defer tree.Close()

	return countIn(tree.RootNode(), code, false), nil
}

func countIn(node *sitter.Node, code []byte, inClass bool) int {
	count := 0
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		def := child
		if child.Type() == "decorated_definition" {
			def = child.ChildByFieldName("definition")
			if def == nil {
				continue
			}
		}

		switch def.Type() {
		case "function_definition":
			if strings.HasPrefix(nodeName(def, code), "test") {
				count++
			}
		case "class_definition":
			if inClass || !strings.HasPrefix(nodeName(def, code), "Test") {
				continue
			}
			if body := def.ChildByFieldName("body"); body != nil {
				count += countIn(body, code, true)
			}
		}
	}
	return count
}

func nodeName(n *sitter.Node, code []byte) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return name.Content(code)
}
