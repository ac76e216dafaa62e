package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/agent-runtime/domain/config"
)

var (
	// ${VAR}, ${VAR:-default}, ${VAR:?message}
	bracketPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)
	// $VAR
	simplePattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// envExpander expands environment variables in configuration text.
type envExpander struct {
	lookup  LookupFunc
	strict  bool
	missing []string
}

func newEnvExpander(lookup LookupFunc, strict bool) *envExpander {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envExpander{lookup: lookup, strict: strict}
}

// Expand expands environment variables in the input string.
// Supported patterns:
//   - ${VAR} - expands to the value of VAR
//   - ${VAR:-default} - expands to VAR or "default" if unset or empty
//   - ${VAR:?message} - fails if VAR is unset or empty
//   - $VAR - simple expansion
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	result := bracketPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := bracketPattern.FindStringSubmatch(match)
		name, modifier := sub[1], sub[2]
		value, ok := e.lookup(name)

		switch {
		case strings.HasPrefix(modifier, ":-"):
			if !ok || value == "" {
				return modifier[2:]
			}
		case strings.HasPrefix(modifier, ":?"):
			if !ok || value == "" {
				e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[2:]))
				return match
			}
		default:
			if !ok {
				e.unset(name)
				return ""
			}
		}
		return value
	})

	result = simplePattern.ReplaceAllStringFunc(result, func(match string) string {
		name := match[1:]
		value, ok := e.lookup(name)
		if !ok {
			e.unset(name)
			return ""
		}
		return value
	})

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return result, nil
}

func (e *envExpander) unset(name string) {
	if e.strict {
		e.missing = append(e.missing, name)
	}
}

// ExpandEnv expands environment variables, substituting empty strings for
// unset ones. Required variables (${VAR:?msg}) that are missing leave the
// input unchanged.
func ExpandEnv(input string) string {
	result, err := newEnvExpander(nil, false).Expand(input)
	if err != nil {
		return input
	}
	return result
}

// ExpandEnvStrict expands environment variables and returns an error for
// any that are missing.
func ExpandEnvStrict(input string) (string, error) {
	return newEnvExpander(nil, true).Expand(input)
}
