package mapping

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// timeLayouts are the textual forms used by drivers that return dates as
// text, SQLite in particular.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Assign sets dst to the driver value src, converting between the types
// drivers return and the type of dst. A nil src sets the zero value.
func Assign(dst reflect.Value, src any) error {
	if !dst.CanSet() {
		return fmt.Errorf("mapping: cannot set value of type %s", dst.Type())
	}
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		v := reflect.New(dst.Type().Elem())
		if err := Assign(v.Elem(), src); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	sv := reflect.ValueOf(src)
	if dst.Kind() != reflect.Slice && sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	switch dst.Kind() {
	case reflect.Interface:
		if b, ok := src.([]byte); ok {
			src = append([]byte(nil), b...)
		}
		dst.Set(reflect.ValueOf(src))
		return nil
	case reflect.String:
		switch v := src.(type) {
		case []byte:
			dst.SetString(string(v))
		case time.Time:
			dst.SetString(v.Format(time.RFC3339Nano))
		default:
			dst.SetString(fmt.Sprint(src))
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(src)
		if err != nil {
			return assignError(src, dst, err)
		}
		if dst.OverflowInt(n) {
			return assignError(src, dst, fmt.Errorf("value %d overflows", n))
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(src)
		if err != nil {
			return assignError(src, dst, err)
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return assignError(src, dst, fmt.Errorf("value %d overflows", n))
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(src)
		if err != nil {
			return assignError(src, dst, err)
		}
		dst.SetFloat(f)
		return nil
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return assignError(src, dst, err)
		}
		dst.SetBool(b)
		return nil
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch v := src.(type) {
			case []byte:
				dst.SetBytes(append([]byte(nil), v...))
				return nil
			case string:
				dst.SetBytes([]byte(v))
				return nil
			}
		}
	case reflect.Struct:
		if dst.Type() == timeType {
			t, err := toTime(src)
			if err != nil {
				return assignError(src, dst, err)
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}
	if sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return assignError(src, dst, nil)
}

func assignError(src any, dst reflect.Value, err error) error {
	if err == nil {
		return fmt.Errorf("mapping: cannot assign %T to %s", src, dst.Type())
	}
	return fmt.Errorf("mapping: cannot assign %T to %s: %w", src, dst.Type(), err)
}

func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows", v)
		}
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	}
	return 0, fmt.Errorf("unsupported source type")
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func toFloat64(src any) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	n, err := toInt64(src)
	return float64(n), err
}

func toBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(v)))
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	n, err := toInt64(src)
	return n != 0, err
}

func toTime(src any) (time.Time, error) {
	var s string
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		return time.Unix(v, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported source type")
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
