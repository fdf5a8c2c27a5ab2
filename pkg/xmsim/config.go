package xmsim

import (
	"bufio"
	"strings"
)

// ParseDomainConfig reads the flat `key = value` assignments of an xm domain
// config. Quotes around scalar values are dropped; list values such as
// `disk = ['...']` are kept verbatim.
func ParseDomainConfig(raw string) map[string]string {
	cfg := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		sep := strings.IndexByte(line, '=')
		if sep < 0 {
			continue
		}
		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		cfg[key] = value
	}
	return cfg
}
