package analyze

import (
	"pgshape/internal/catalog"
)

// Well-known pg_catalog type OIDs. Only the scalars the classifier cares
// about are listed; everything else degrades to opaque JSON.
const (
	OidBool        = 16
	OidBytea       = 17
	OidName        = 19
	OidInt8        = 20
	OidInt2        = 21
	OidInt4        = 23
	OidText        = 25
	OidOid         = 26
	OidJSON        = 114
	OidFloat4      = 700
	OidFloat8      = 701
	OidMoney       = 790
	OidBpchar      = 1042
	OidVarchar     = 1043
	OidDate        = 1082
	OidTime        = 1083
	OidTimestamp   = 1114
	OidTimestamptz = 1184
	OidInterval    = 1186
	OidTimetz      = 1266
	OidNumeric     = 1700
	OidUUID        = 2950
	OidJSONB       = 3802
)

// PrimitiveKind is the language-level classification of a scalar type.
type PrimitiveKind int

const (
	KindNumber PrimitiveKind = iota
	KindString
	KindBoolean
	// KindJSON is the opaque fallback for anything without a more
	// precise classification.
	KindJSON
)

func (k PrimitiveKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	default:
		return "Json"
	}
}

// oidKinds classifies the base scalar types. Fixed and table-driven: a
// type outside this map, including user-defined composites and domains,
// degrades to opaque JSON.
var oidKinds = map[uint32]PrimitiveKind{
	OidBool:        KindBoolean,
	OidInt2:        KindNumber,
	OidInt4:        KindNumber,
	OidInt8:        KindNumber,
	OidFloat4:      KindNumber,
	OidFloat8:      KindNumber,
	OidNumeric:     KindNumber,
	OidMoney:       KindNumber,
	OidOid:         KindNumber,
	OidText:        KindString,
	OidVarchar:     KindString,
	OidBpchar:      KindString,
	OidName:        KindString,
	OidBytea:       KindString,
	OidDate:        KindString,
	OidTime:        KindString,
	OidTimetz:      KindString,
	OidTimestamp:   KindString,
	OidTimestamptz: KindString,
	OidInterval:    KindString,
	OidUUID:        KindString,
	OidJSON:        KindJSON,
	OidJSONB:       KindJSON,
}

// typeOIDs maps declared type names to OIDs. The parser normalizes most
// aliases into pg_catalog names (integer -> int4), but schema files can
// still spell common SQL names directly.
var typeOIDs = map[string]uint32{
	"bool":        OidBool,
	"boolean":     OidBool,
	"bytea":       OidBytea,
	"name":        OidName,
	"int8":        OidInt8,
	"bigint":      OidInt8,
	"int2":        OidInt2,
	"smallint":    OidInt2,
	"int4":        OidInt4,
	"int":         OidInt4,
	"integer":     OidInt4,
	"text":        OidText,
	"oid":         OidOid,
	"json":        OidJSON,
	"float4":      OidFloat4,
	"real":        OidFloat4,
	"float8":      OidFloat8,
	"money":       OidMoney,
	"bpchar":      OidBpchar,
	"char":        OidBpchar,
	"varchar":     OidVarchar,
	"date":        OidDate,
	"time":        OidTime,
	"timestamp":   OidTimestamp,
	"timestamptz": OidTimestamptz,
	"interval":    OidInterval,
	"timetz":      OidTimetz,
	"numeric":     OidNumeric,
	"decimal":     OidNumeric,
	"uuid":        OidUUID,
	"jsonb":       OidJSONB,
}

// TypeOID maps a declared type identifier to its pg_catalog OID. Only
// built-in scalars resolve; user-defined types return false. A bare type
// name is normalized into defaultSchema before it reaches here, so that
// schema is accepted alongside pg_catalog (empty means "public").
func TypeOID(id catalog.Identifier, defaultSchema string) (uint32, bool) {
	if defaultSchema == "" {
		defaultSchema = catalog.DefaultSchema
	}
	if id.Schema != "pg_catalog" && id.Schema != defaultSchema && id.Schema != "" {
		return 0, false
	}
	oid, ok := typeOIDs[id.Name]
	return oid, ok
}

// ClassifyOID returns the primitive classification for a known scalar
// OID. Unknown OIDs return false; the caller decides how to degrade.
func ClassifyOID(oid uint32) (PrimitiveKind, bool) {
	kind, ok := oidKinds[oid]
	return kind, ok
}
