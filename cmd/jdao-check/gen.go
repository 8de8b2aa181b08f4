package main

import (
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/shrek82/jdao/catalog"
)

// 语句键常量模板
const keysTemplate = `// Code generated by jdao-check. DO NOT EDIT.

package {{.Package}}

// {{.Owner}} 的语句键
const (
{{- range .Keys}}
	{{.Const}} = "{{.Key}}"
{{- end}}
)

// {{.Owner}}Keys 列出 {{.Owner}} 的全部语句键，可传给 DAO.Require
var {{.Owner}}Keys = []string{
{{- range .Keys}}
	{{.Const}},
{{- end}}
}
`

// KeyData 代表一个语句键
type KeyData struct {
	Const string // Go 常量名
	Key   string // 目录中的键
}

// OwnerData 代表生成模板所需的数据
type OwnerData struct {
	Package string
	Owner   string
	Keys    []KeyData
}

var keysTmpl = template.Must(template.New("keys").Parse(keysTemplate))

// generate 为每个 owner 生成一个 <owner>_keys.go 文件，返回写入的文件数。
func generate(cat *catalog.Catalog, pkg, dir string, overwrite bool) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("创建输出目录失败: %w", err)
	}

	written := 0
	for _, owner := range cat.Owners() {
		fileName := filepath.Join(dir, camelToSnake(owner)+"_keys.go")
		if _, err := os.Stat(fileName); err == nil && !overwrite {
			fmt.Printf("文件 %s 已存在，跳过 (使用 -overwrite 覆盖)\n", fileName)
			continue
		}

		src, err := renderKeys(pkg, owner, cat.Statements(owner))
		if err != nil {
			return written, fmt.Errorf("%s: %w", owner, err)
		}
		if err := os.WriteFile(fileName, src, 0o644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func renderKeys(pkg, owner string, stmts map[string]string) ([]byte, error) {
	data := OwnerData{Package: pkg, Owner: exportName(owner)}
	for key := range stmts {
		data.Keys = append(data.Keys, KeyData{Const: data.Owner + exportName(key), Key: key})
	}
	sort.Slice(data.Keys, func(i, j int) bool { return data.Keys[i].Key < data.Keys[j].Key })

	var sb strings.Builder
	if err := keysTmpl.Execute(&sb, data); err != nil {
		return nil, err
	}
	return format.Source([]byte(sb.String()))
}

// exportName 把键转换为导出的 Go 标识符，例如 find_user.by-id -> FindUserById
func exportName(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "K" + out
	}
	return out
}

// camelToSnake 把 UserDAO 转换为 user_dao
func camelToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
