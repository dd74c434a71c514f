package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingField is matched by errors.Is when a required key is absent or empty.
var ErrMissingField = errors.New("missing required field")

// ConfigError reports a mail configuration file that cannot be used.
type ConfigError struct {
	Path    string
	Missing []string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid mail config")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if len(e.Missing) > 0 {
		b.WriteString(": missing required field in config: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMissingField) match any error naming missing keys.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingField && len(e.Missing) > 0
}

// Load reads and validates the mail configuration file at path.
func Load(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail config: %w", err)
	}
	defer f.Close()

	values, err := Parse(f)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	s, err := FromMap(values)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	s.Path = path
	return s, nil
}

// Parse reads KEY=value lines. Blank lines, lines starting with '#' and lines
// without '=' are skipped. Keys and values are trimmed and one layer of
// matching single or double quotes is removed from the value. A repeated key
// keeps its last value.
func Parse(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mail config: %w", err)
	}

	return values, nil
}

// FromMap builds Settings from parsed values, applying defaults and
// checking required keys. Unknown keys are ignored.
func FromMap(values map[string]string) (*Settings, error) {
	var missing []string
	for _, key := range []string{KeyFromEmail, KeyPassword} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	s := Default()
	s.FromEmail = values[KeyFromEmail]
	s.Password = values[KeyPassword]

	if server, ok := values[KeySMTPServer]; ok {
		s.SMTPServer = server
	}

	if raw, ok := values[KeySMTPPort]; ok {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("%s must be an integer: %w", KeySMTPPort, err)}
		}
		if port < 1 || port > 65535 {
			return nil, &ConfigError{Err: fmt.Errorf("%s must be between 1 and 65535, got %d", KeySMTPPort, port)}
		}
		s.SMTPPort = port
	}

	return s, nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if (first == '"' || first == '\'') && first == last {
		return value[1 : len(value)-1]
	}
	return value
}
