package resolver

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
}

// ValidationError collects every problem found in a config, keyed by
// json field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// ValidateConfig checks a config before it is stored or dispatched. Tag
// validation covers the struct shape; provider rules layer on top: local
// daemons need no credential, compatible endpoints need an explicit url,
// and endpoint overrides must parse as http(s) URLs.
func ValidateConfig(cfg *schema.GenerationConfig) error {
	fields := map[string]string{}

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range verrs {
				ns := e.Namespace()
				if i := strings.Index(ns, "."); i != -1 {
					ns = ns[i+1:]
				}
				msg := e.Translate(trans)
				if e.Tag() == "oneof" {
					msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
				}
				fields[ns] = msg
			}
		} else {
			return err
		}
	}

	if !knownProvider(cfg.Provider) {
		fields["provider"] = fmt.Sprintf("unknown provider; expected one of [%s]", strings.Join(llm.Names(), ", "))
	}

	switch cfg.Provider {
	case string(llm.Ollama):
		// no credential needed
	case string(llm.Compat):
		if cfg.BaseURL == "" {
			fields["base_url"] = "openai_compatible requires an explicit endpoint"
		}
		if cfg.APIKey == "" {
			// many compatible servers accept any token but require one
			fields["api_key"] = "api key is required (use any value for unauthenticated servers)"
		}
	default:
		if cfg.APIKey == "" {
			fields["api_key"] = "api key is required"
		}
	}

	if cfg.BaseURL != "" {
		if msg := checkEndpoint(cfg.BaseURL); msg != "" {
			fields["base_url"] = msg
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func knownProvider(name string) bool {
	for _, n := range llm.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func checkEndpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "endpoint is not a valid URL"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "endpoint must use http or https"
	}
	if u.Host == "" {
		return "endpoint is missing a host"
	}
	return ""
}
