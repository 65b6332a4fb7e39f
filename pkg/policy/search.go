package policy

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the standard configuration file name.
const DefaultFileName = "audio_policy_configuration.xml"

// SearchOptions control where Locate looks for the configuration.
type SearchOptions struct {
	// FileName overrides DefaultFileName.
	FileName string

	// Dirs overrides the platform search path.
	Dirs []string

	// SKU adds the sku_<SKU> vendor directories ahead of the defaults.
	SKU string

	// Root is prepended to every directory. Used to search an extracted
	// system image or a test fixture tree.
	Root string
}

// SearchDirs returns the platform configuration directories in priority
// order.
func SearchDirs(sku string) []string {
	var dirs []string
	if sku != "" {
		dirs = append(dirs,
			"/odm/etc/audio/sku_"+sku,
			"/vendor/etc/audio/sku_"+sku,
		)
	}
	return append(dirs,
		"/odm/etc",
		"/vendor/etc/audio",
		"/vendor/etc",
		"/system/etc",
	)
}

// Candidates returns every path Locate would try, in order.
func (o SearchOptions) Candidates() []string {
	name := o.FileName
	if name == "" {
		name = DefaultFileName
	}
	dirs := o.Dirs
	if len(dirs) == 0 {
		dirs = SearchDirs(o.SKU)
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if o.Root != "" {
			d = filepath.Join(o.Root, strings.TrimPrefix(d, "/"))
		}
		out = append(out, filepath.Join(d, name))
	}
	return out
}

// Locate returns the first readable candidate.
func Locate(opts SearchOptions) (string, error) {
	candidates := opts.Candidates()
	for _, p := range candidates {
		if readable(p) {
			return p, nil
		}
	}
	return "", &ParseError{
		Kind:    ErrNotFound,
		Message: "searched " + strings.Join(candidates, ", "),
	}
}

// LoadDefault locates and parses the platform configuration.
func LoadDefault(opts SearchOptions) (*Config, error) {
	path, err := Locate(opts)
	if err != nil {
		return &Config{}, err
	}
	return ParseFile(path)
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && st.Mode().IsRegular()
}
