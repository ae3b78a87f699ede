package dialect

import (
	"reflect"
	"strings"
	"time"
)

var (
	typeAny     = reflect.TypeOf((*any)(nil)).Elem()
	typeBytes   = reflect.TypeOf([]byte(nil))
	typeTime    = reflect.TypeOf(time.Time{})
	typeString  = reflect.TypeOf("")
	typeInt64   = reflect.TypeOf(int64(0))
	typeInt32   = reflect.TypeOf(int32(0))
	typeInt16   = reflect.TypeOf(int16(0))
	typeUint8   = reflect.TypeOf(uint8(0))
	typeFloat64 = reflect.TypeOf(float64(0))
	typeFloat32 = reflect.TypeOf(float32(0))
	typeBool    = reflect.TypeOf(false)
)

// common maps database type names shared by most providers.
var common = map[string]reflect.Type{
	"bigint":                      typeInt64,
	"bigserial":                   typeInt64,
	"int8":                        typeInt64,
	"int":                         typeInt32,
	"integer":                     typeInt64,
	"int4":                        typeInt32,
	"mediumint":                   typeInt32,
	"serial":                      typeInt32,
	"smallint":                    typeInt16,
	"int2":                        typeInt16,
	"smallserial":                 typeInt16,
	"tinyint":                     typeInt16,
	"bit":                         typeBool,
	"bool":                        typeBool,
	"boolean":                     typeBool,
	"decimal":                     typeFloat64,
	"numeric":                     typeFloat64,
	"money":                       typeFloat64,
	"smallmoney":                  typeFloat64,
	"double":                      typeFloat64,
	"double precision":            typeFloat64,
	"float":                       typeFloat64,
	"float8":                      typeFloat64,
	"real":                        typeFloat32,
	"float4":                      typeFloat32,
	"char":                        typeString,
	"nchar":                       typeString,
	"varchar":                     typeString,
	"nvarchar":                    typeString,
	"character":                   typeString,
	"character varying":           typeString,
	"text":                        typeString,
	"ntext":                       typeString,
	"tinytext":                    typeString,
	"mediumtext":                  typeString,
	"longtext":                    typeString,
	"json":                        typeString,
	"jsonb":                       typeString,
	"xml":                         typeString,
	"enum":                        typeString,
	"uuid":                        typeString,
	"uniqueidentifier":            typeString,
	"citext":                      typeString,
	"date":                        typeTime,
	"datetime":                    typeTime,
	"datetime2":                   typeTime,
	"smalldatetime":               typeTime,
	"datetimeoffset":              typeTime,
	"timestamp":                   typeTime,
	"timestamptz":                 typeTime,
	"timestamp without time zone": typeTime,
	"timestamp with time zone":    typeTime,
	"time":                        typeString,
	"binary":                      typeBytes,
	"varbinary":                   typeBytes,
	"image":                       typeBytes,
	"blob":                        typeBytes,
	"tinyblob":                    typeBytes,
	"mediumblob":                  typeBytes,
	"longblob":                    typeBytes,
	"bytea":                       typeBytes,
}

// overrides holds dialect specific mappings that differ from common.
var overrides = map[string]map[string]reflect.Type{
	SQLServer: {
		"tinyint":    typeUint8,
		"timestamp":  typeBytes, // rowversion
		"rowversion": typeBytes,
	},
	MySQL: {
		"tinyint": typeInt16,
		"year":    typeInt16,
		"bit":     typeBytes,
	},
	SQLite: {
		"int":     typeInt64,
		"integer": typeInt64,
		"boolean": typeBool,
		"none":    typeAny,
	},
}

// ResolveType resolves a database type name, as reported by the schema
// helpers, into the Go type used to hold its values. Size and precision
// suffixes such as "varchar(20)" are ignored. Unknown types resolve to any.
func ResolveType(dialectName, dbType string) reflect.Type {
	t := strings.ToLower(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, " unsigned")
	if m, ok := overrides[Normalize(dialectName)]; ok {
		if rt, ok := m[t]; ok {
			return rt
		}
	}
	if rt, ok := common[t]; ok {
		return rt
	}
	// SQLite type affinity rules.
	if Normalize(dialectName) == SQLite {
		switch {
		case strings.Contains(t, "int"):
			return typeInt64
		case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
			return typeString
		case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
			return typeFloat64
		}
	}
	return typeAny
}
