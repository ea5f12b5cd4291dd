package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("listen_addr", validateListenAddr)
		_ = validate.RegisterValidation("export_target", validateExportTarget)
	})
	return validate
}

// validateListenAddr accepts host:port and :port, including port 0.
func validateListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// ExportSchemes are the snapshot export target schemes.
var ExportSchemes = []string{"file", "badger", "s3"}

// validateExportTarget accepts file:// and badger:// URLs with a path and
// s3:// URLs with a bucket.
func validateExportTarget(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || !slices.Contains(ExportSchemes, u.Scheme) {
		return false
	}
	if u.Scheme == "s3" {
		return u.Host != ""
	}
	return u.Host+u.Path != ""
}

// Validate checks cfg against its struct tags and reports every violation.
func Validate(cfg *Settings) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	secrets := secretFields()
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if secrets[strings.TrimPrefix(fe.StructNamespace(), "Settings.")] {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fieldPath(fe), ruleOf(fe)))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fieldPath(fe), ruleOf(fe), fe.Value()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// secretFields holds the struct namespaces, such as "Admin.TokenSecret", of
// the settings tagged secret:"true". Their values never appear in errors.
var secretFields = sync.OnceValue(func() map[string]bool {
	out := make(map[string]bool)
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + f.Name
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			if f.Tag.Get("secret") == "true" {
				out[name] = true
			}
		}
	}
	walk(reflect.TypeOf(Settings{}), "")
	return out
})

func ruleOf(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// fieldPath turns "Settings.Admin.Port" into "admin.port" via the mapstructure names.
func fieldPath(fe validator.FieldError) string {
	ns := strings.TrimPrefix(fe.StructNamespace(), "Settings.")
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Schema returns the JSON schema (draft 2020-12) of the settings file.
func Schema(title string) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&Settings{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = title
	schema.Description = "Configuration schema for the server's built-in settings"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return data, nil
}
