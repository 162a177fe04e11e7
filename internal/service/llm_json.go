package service

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

var errNoJSONObject = errors.New("no json object in llm response")

// decodeLLMJSON quita fences markdown y BOM y decodifica el primer objeto
// JSON de la respuesta.
func decodeLLMJSON(raw string, out any) error {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = strings.TrimSpace(fenceEnd.ReplaceAllString(s, ""))

	obj := firstJSONObject(s)
	if obj == "" {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(obj), out)
}

// firstJSONObject devuelve el primer objeto balanceado, ignorando llaves
// dentro de strings.
func firstJSONObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
