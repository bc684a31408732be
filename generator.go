package liteorm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateModel generates a Go struct for the given table schema and
// saves it to a file. The table usually comes from ReadSchema/ReadTable,
// closing the loop: define structs, create tables, then regenerate
// structs from a live database.
//
// outPath may be empty (writes models/{table}.go under the current
// directory), a directory, or a .go file path. structName may be empty,
// in which case it is derived from the table name.
func GenerateModel(table *Table, outPath, structName string) error {
	if table == nil {
		return fmt.Errorf("liteorm: cannot generate model: table is nil")
	}
	if err := validateIdentifier(table.Name); err != nil {
		return err
	}
	if len(table.Columns) == 0 {
		return &SchemaError{Table: table.Name, Reason: "table has no columns"}
	}

	// 1. Handle path and package name
	var pkgName string
	var finalPath string

	if outPath == "" {
		pkgName = "models"
		safeFileBase := strings.ReplaceAll(strings.ToLower(table.Name), ".", "_")
		finalPath = filepath.Join("models", safeFileBase+".go")
	} else if strings.HasSuffix(outPath, ".go") {
		finalPath = outPath
		dir := filepath.Dir(outPath)
		if dir == "." || dir == "/" {
			pkgName = "models"
		} else {
			pkgName = filepath.Base(dir)
		}
	} else {
		pkgName = filepath.Base(outPath)
		if pkgName == "." || pkgName == "/" {
			pkgName = "models"
		}
		safeFileBase := strings.ReplaceAll(strings.ToLower(table.Name), ".", "_")
		finalPath = filepath.Join(outPath, safeFileBase+".go")
	}

	source, err := ModelSource(table, pkgName, structName)
	if err != nil {
		return err
	}

	// 2. Write to file
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("liteorm: failed to create directory: %v", err)
	}
	if err := os.WriteFile(finalPath, []byte(source), 0644); err != nil {
		return fmt.Errorf("liteorm: failed to write file: %v", err)
	}
	return nil
}

// ModelSource renders the Go source for a table's model struct without
// touching the filesystem.
func ModelSource(table *Table, pkgName, structName string) (string, error) {
	if pkgName == "" {
		pkgName = "models"
	}
	finalStructName := structName
	if finalStructName == "" {
		camelBase := strings.ReplaceAll(table.Name, ".", "_")
		finalStructName = SnakeToCamel(camelBase)
	}

	pkIndex, err := table.resolvePrimaryKey()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("package %s\n\n", pkgName))

	sb.WriteString(fmt.Sprintf("// %s represents the %s table\n", finalStructName, table.Name))
	sb.WriteString(fmt.Sprintf("type %s struct {\n", finalStructName))

	for i, col := range table.Columns {
		fieldName := SnakeToCamel(col.Name)
		if fieldName == "" {
			continue
		}
		goType := columnGoType(col, i == pkIndex)

		// 字段名和列名可能大小写不同，标签里始终带上列名保持映射一致
		tag := fmt.Sprintf("`db:\"%s\"`", col.Name)
		if i == pkIndex {
			tag = fmt.Sprintf("`db:\"%s,pk\"`", col.Name)
		}

		sb.WriteString(fmt.Sprintf("\t%s %s %s\n", fieldName, goType, tag))
	}
	sb.WriteString("}\n")

	return sb.String(), nil
}

// SnakeToCamel converts snake_case to CamelCase, special-casing "id".
func SnakeToCamel(s string) string {
	s = strings.ToLower(s)
	parts := strings.Split(s, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			if strings.EqualFold(parts[i], "id") {
				parts[i] = "ID"
			} else {
				parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
			}
		}
	}
	return strings.Join(parts, "")
}

// columnGoType maps a column back to a Go field type. A nullable column
// becomes a pointer so NULL round-trips; an INTEGER column carrying the
// 0/1 check the inference engine emits for booleans maps back to bool.
func columnGoType(c *Column, isPK bool) string {
	nullable := !c.NotNull && !isPK

	switch c.Type {
	case ColumnInteger:
		if strings.HasPrefix(c.Check, "IN (0, 1") {
			if nullable {
				return "*bool"
			}
			return "bool"
		}
		if nullable {
			return "*int64"
		}
		return "int64"
	case ColumnReal:
		if nullable {
			return "*float64"
		}
		return "float64"
	case ColumnBlob:
		return "[]byte" // 二进制数据通常不使用指针
	default:
		if nullable {
			return "*string"
		}
		return "string"
	}
}
