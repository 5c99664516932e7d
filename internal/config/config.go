// Package config loads peqlink options and watches the registry override
// file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "PEQLINK_"

// option is one tagged field of an options struct.
type option struct {
	value reflect.Value
	flag  string
	toml  string
	env   string
}

// LoadConfig fills opts, a pointer to a flat options struct, from the TOML
// file named by its Config field and from PEQLINK_* variables. Precedence is
// CLI flag > env > file: fields whose flag was set on cmd are left alone.
// A missing file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	fields := collectOptions(v)
	onCLI := changedFlags(cmd)

	file, err := readFile(v.FieldByName("Config"))
	if err != nil {
		return err
	}

	for _, o := range fields {
		if onCLI[o.flag] {
			continue
		}
		if o.toml != "" && file != nil {
			if raw := lookup(file, o.toml); raw != nil {
				setFieldValue(o.value, raw)
			}
		}
		if o.env != "" {
			if s := os.Getenv(EnvPrefix + o.env); s != "" {
				setFieldValueFromString(o.value, s)
			}
		}
	}
	return nil
}

func collectOptions(v reflect.Value) []option {
	t := v.Type()
	out := make([]option, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		out = append(out, option{
			value: v.Field(i),
			flag:  fieldNameToFlag(f.Name),
			toml:  f.Tag.Get("toml"),
			env:   f.Tag.Get("env"),
		})
	}
	return out
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := map[string]bool{}
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

func readFile(path reflect.Value) (map[string]any, error) {
	if !path.IsValid() || path.Kind() != reflect.String || path.String() == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path.String())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path.String(), err)
	}
	var file map[string]any
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return file, nil
}

// fieldNameToFlag converts a field name to the kebab-case flag humacli
// derives from it. Acronyms stay together: "LoggingHID" -> "logging-hid",
// "CORSOrigin" -> "cors-origin", "DevicePullTimeoutMs" -> "device-pull-timeout-ms".
func fieldNameToFlag(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookup walks a dotted path such as "network.timeout_ms".
func lookup(data map[string]any, path string) any {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return data[head]
	}
	next, ok := data[head].(map[string]any)
	if !ok {
		return nil
	}
	return lookup(next, rest)
}

// setFieldValue assigns a decoded TOML value. Values of the wrong type are
// ignored and the field keeps its default.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		case float64:
			if n == math.Trunc(n) {
				field.SetInt(int64(n))
			}
		}
	case reflect.Float64:
		switch n := value.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		field.Set(reflect.ValueOf(out))
	}
}

// setFieldValueFromString assigns an environment value. Slices are comma
// separated.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Float64:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			field.SetFloat(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}
