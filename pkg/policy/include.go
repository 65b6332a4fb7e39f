package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// XIncludeNS is the XInclude namespace URI.
const XIncludeNS = "http://www.w3.org/2001/XInclude"

// MaxIncludeDepth bounds nested include resolution.
const MaxIncludeDepth = 8

var (
	includeExpr  = mustCompileNS("//xi:include", map[string]string{"xi": XIncludeNS})
	fallbackExpr = mustCompileNS("xi:fallback", map[string]string{"xi": XIncludeNS})
)

func mustCompileNS(expr string, ns map[string]string) *xpath.Expr {
	e, err := xpath.CompileWithNS(expr, ns)
	if err != nil {
		panic(err)
	}
	return e
}

// resolveIncludes replaces every xi:include element below top with the
// content of the referenced document.
func resolveIncludes(top *xmlquery.Node, baseDir string, visited map[string]bool, depth int) error {
	if depth > MaxIncludeDepth {
		return fmt.Errorf("include depth exceeds %d", MaxIncludeDepth)
	}

	for _, inc := range xmlquery.QuerySelectorAll(top, includeExpr) {
		href := inc.SelectAttr("href")
		if href == "" {
			return fmt.Errorf("xi:include without href")
		}
		target := href
		if !filepath.IsAbs(target) {
			target = filepath.Join(baseDir, target)
		}

		nodes, err := loadInclude(target, inc.SelectAttr("parse"), visited, depth)
		if err != nil {
			fb := xmlquery.QuerySelector(inc, fallbackExpr)
			if fb == nil {
				return err
			}
			nodes = children(fb)
		}
		splice(inc, nodes)
	}
	return nil
}

func loadInclude(target, parse string, visited map[string]bool, depth int) ([]*xmlquery.Node, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	if visited[abs] {
		return nil, fmt.Errorf("include cycle at %s", target)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, err
	}

	if parse == "text" {
		return []*xmlquery.Node{{Type: xmlquery.TextNode, Data: string(data)}}, nil
	}

	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}

	visited[abs] = true
	defer delete(visited, abs)

	if err := resolveIncludes(doc, filepath.Dir(target), visited, depth+1); err != nil {
		return nil, err
	}

	root := rootElement(doc)
	if root == nil {
		return nil, fmt.Errorf("%s: no root element", target)
	}
	return []*xmlquery.Node{root}, nil
}

func children(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// splice replaces old with nodes, keeping sibling order.
func splice(old *xmlquery.Node, nodes []*xmlquery.Node) {
	prev := old
	for _, n := range nodes {
		xmlquery.RemoveFromTree(n)
		xmlquery.AddImmediateSibling(prev, n)
		prev = n
	}
	xmlquery.RemoveFromTree(old)
}
