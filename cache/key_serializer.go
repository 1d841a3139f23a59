package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// hashedMarker prefixes the digest that replaces an overlong argument list.
const hashedMarker = "xxh:"

// SerializerOption configures the default key serializer.
type SerializerOption func(*defaultKeySerializer)

// WithMaxKeyLength hashes the argument part of keys longer than n bytes.
// The method segment is always kept verbatim so prefix invalidation still
// works on hashed keys. Zero disables hashing.
func WithMaxKeyLength(n int) SerializerOption {
	return func(s *defaultKeySerializer) {
		s.maxKeyLength = n
	}
}

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Every value carries its kind and strings are quoted, so 1 and "1" never
// share a key and separators inside values cannot merge two criteria. Maps
// are emitted in sorted key order so criteria built in any order share a key.
type defaultKeySerializer struct {
	maxKeyLength int
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer(opts ...SerializerOption) KeySerializer {
	s := &defaultKeySerializer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SerializeKey builds a cache key from method name and args.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = s.serializeValue(arg)
	}
	rest := strings.Join(parts, KeySeparator)

	key := method + KeySeparator + rest
	if s.maxKeyLength > 0 && len(key) > s.maxKeyLength {
		return method + KeySeparator + hashedMarker + strconv.FormatUint(xxhash.Sum64String(rest), 16)
	}
	return key
}

// serializeValue handles individual argument serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return "slice" + s.serializeElems(rv)
	case reflect.Array:
		return "array" + s.serializeElems(rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		if tm, ok := v.(encoding.TextMarshaler); ok {
			if text, err := tm.MarshalText(); err == nil {
				return "text:" + strconv.Quote(string(text))
			}
		}
		return s.serializeStruct(rv, rt)
	case reflect.String:
		return "string:" + strconv.Quote(rv.String())
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%s:%v", rt.Kind(), v)
	}

	return s.jsonFallback(v)
}

func (s *defaultKeySerializer) serializeElems(rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return fmt.Sprintf("[%d]:{%s}", length, strings.Join(parts, ","))
}

// serializeMap emits key=value pairs sorted by serialized key.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := s.serializeValue(iter.Key().Interface())
		val := s.serializeValue(iter.Value().Interface())
		pairs = append(pairs, k+"="+val)
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// serializeStruct handles struct serialization with exported field names.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !field.IsExported() || !fv.CanInterface() {
			continue
		}
		parts = append(parts, field.Name+":"+s.serializeValue(fv.Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return "json:" + strconv.Quote(string(data))
}
