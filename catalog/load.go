package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magiconair/properties"
	toml "github.com/pelletier/go-toml"
)

const (
	extProperties = ".properties"
	extTOML       = ".toml"
)

// SQL text may contain ${...} inside string literals; keep it verbatim.
var propertiesLoader = &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}

// LoadProperties reads a .properties file and registers every entry under
// owner. An empty owner means the file's base name.
func (c *Catalog) LoadProperties(owner, file string) error {
	p, err := propertiesLoader.LoadFile(file)
	if err != nil {
		return fmt.Errorf("loading %s: %w", file, err)
	}
	if owner == "" {
		owner = strings.TrimSuffix(filepath.Base(file), extProperties)
	}
	return c.RegisterAll(owner, p.Map())
}

// LoadTOML reads a TOML document whose top-level tables are owners and
// whose string values are statements:
//
//	[UserDAO]
//	findUserById = "SELECT id, name FROM users WHERE id = ?"
func (c *Catalog) LoadTOML(file string) error {
	tree, err := toml.LoadFile(file)
	if err != nil {
		return fmt.Errorf("loading %s: %w", file, err)
	}
	return c.registerTree(file, tree)
}

// LoadFS registers every .properties and .toml file under root in fsys,
// typically an embed.FS. Files are read in lexical order.
func (c *Catalog) LoadFS(fsys fs.FS, root string) error {
	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case extProperties, extTOML:
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return err
		}
		if err := c.loadBytes(f, data); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir is LoadFS over a directory on disk.
func (c *Catalog) LoadDir(dir string) error {
	return c.LoadFS(os.DirFS(dir), ".")
}

func (c *Catalog) loadBytes(name string, data []byte) error {
	switch path.Ext(name) {
	case extProperties:
		p, err := propertiesLoader.LoadBytes(data)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
		return c.RegisterAll(strings.TrimSuffix(path.Base(name), extProperties), p.Map())
	case extTOML:
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
		return c.registerTree(name, tree)
	default:
		return fmt.Errorf("loading %s: unsupported catalog format", name)
	}
}

func (c *Catalog) registerTree(name string, tree *toml.Tree) error {
	for _, owner := range tree.Keys() {
		sub, ok := tree.GetPath([]string{owner}).(*toml.Tree)
		if !ok {
			return fmt.Errorf("loading %s: %q must be a table of statements", name, owner)
		}
		stmts := make(map[string]string, len(sub.Keys()))
		for _, key := range sub.Keys() {
			sql, ok := sub.GetPath([]string{key}).(string)
			if !ok {
				return fmt.Errorf("loading %s: %s.%s is not a string", name, owner, key)
			}
			stmts[key] = sql
		}
		if err := c.RegisterAll(owner, stmts); err != nil {
			return err
		}
	}
	return nil
}

