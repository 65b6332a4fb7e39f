package policy

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Selectors relative to the root and to each module element.
var (
	moduleExpr        = xpath.MustCompile("modules/module")
	mixPortExpr       = xpath.MustCompile("mixPorts/mixPort")
	attachedExpr      = xpath.MustCompile("attachedDevices/item")
	devicePortExpr    = xpath.MustCompile("devicePorts/devicePort")
	defaultOutputExpr = xpath.MustCompile("defaultOutputDevice")
	routeExpr         = xpath.MustCompile("routes/route")
)

// ParseFile reads and extracts the configuration at path.
func ParseFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := cfg.Load(path); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse extracts a configuration from r. Relative include references are
// resolved against baseDir.
func Parse(r io.Reader, baseDir string) (*Config, error) {
	cfg := &Config{}
	if err := cfg.parse(r, "", baseDir); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load replaces the content of c with the configuration at path. On failure
// all collections are left empty.
func (c *Config) Load(path string) error {
	c.Reset()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ParseError{Path: path, Kind: ErrNotFound, Cause: err}
		}
		return &ParseError{Path: path, Kind: ErrUnreadable, Cause: err}
	}
	return c.parse(bytes.NewReader(data), path, filepath.Dir(path))
}

func (c *Config) parse(r io.Reader, path, baseDir string) error {
	c.Reset()

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return &ParseError{Path: path, Kind: ErrMalformed, Cause: err}
	}
	switch n := topLevelElements(doc); {
	case n == 0:
		return &ParseError{Path: path, Kind: ErrMalformed, Message: "no root element"}
	case n > 1:
		return &ParseError{Path: path, Kind: ErrMalformed, Message: "extra content at the end of the document"}
	}

	visited := map[string]bool{}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			visited[abs] = true
		}
	}
	if err := resolveIncludes(doc, baseDir, visited, 0); err != nil {
		return &ParseError{Path: path, Kind: ErrInclude, Cause: err}
	}

	// Includes may replace the root, so look it up again.
	root := rootElement(doc)
	if root == nil {
		return &ParseError{Path: path, Kind: ErrMalformed, Message: "no root element after include processing"}
	}
	if root.Data != RootElement {
		return &ParseError{Path: path, Kind: ErrMalformed, Message: "unexpected root element " + root.Data}
	}

	c.extract(root)
	c.Path = path
	return nil
}

func (c *Config) extract(root *xmlquery.Node) {
	c.Version = root.SelectAttr("version")

	for _, module := range xmlquery.QuerySelectorAll(root, moduleExpr) {
		name := module.SelectAttr("name")
		c.Modules = append(c.Modules, name)

		for _, n := range xmlquery.QuerySelectorAll(module, mixPortExpr) {
			if n.SelectAttr("role") != RoleSource {
				continue
			}
			c.MixPorts = append(c.MixPorts, MixPort{
				Name:   n.SelectAttr("name"),
				Role:   RoleSource,
				Flags:  n.SelectAttr("flags"),
				Module: name,
			})
		}

		for _, n := range xmlquery.QuerySelectorAll(module, attachedExpr) {
			if dev := strings.TrimSpace(n.InnerText()); dev != "" {
				c.AttachedDevices = append(c.AttachedDevices, dev)
			}
		}

		for _, n := range xmlquery.QuerySelectorAll(module, devicePortExpr) {
			c.DevicePorts = append(c.DevicePorts, DevicePort{
				TagName: n.SelectAttr("tagName"),
				Type:    n.SelectAttr("type"),
				Role:    n.SelectAttr("role"),
				Address: n.SelectAttr("address"),
				Module:  name,
			})
		}

		for _, n := range xmlquery.QuerySelectorAll(module, defaultOutputExpr) {
			if dev := strings.TrimSpace(n.InnerText()); dev != "" {
				c.DefaultOutputDevices = append(c.DefaultOutputDevices, dev)
			}
		}

		for _, n := range xmlquery.QuerySelectorAll(module, routeExpr) {
			c.Routes = append(c.Routes, Route{
				Name:    n.SelectAttr("name"),
				Type:    n.SelectAttr("type"),
				Sources: n.SelectAttr("sources"),
				Sink:    n.SelectAttr("sink"),
				Module:  name,
			})
		}
	}
}

// topLevelElements counts the element children of the document node. A
// well-formed document has exactly one.
func topLevelElements(doc *xmlquery.Node) int {
	n := 0
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			n++
		}
	}
	return n
}

// rootElement returns the first element child of the document node.
func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}
