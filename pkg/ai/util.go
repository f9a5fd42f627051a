package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

var codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \t]*\r?\n?(.*?)```$")

// stripCodeFence unwraps a Markdown code fence. Chat-tuned models wrap
// facet JSON in ```json fences even when the prompt asks for bare
// output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// stripDuplicateLeadingBrace drops one of two opening braces, a stutter
// some models produce when schema-constrained sampling restarts.
func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// GenerateSchema builds a JSON Schema from a facet payload type, for use
// as the structured-output constraint of GenerateStructured. Field
// descriptions come from jsonschema_description tags on the type.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// UnmarshalFlexible decodes model output into out, tolerating the usual
// deviations of LLM-produced JSON: Markdown code fences, double-encoded
// strings, a stuttered opening brace, and almost-JSON that jsonrepair
// can fix. Clean JSON takes the fast path.
//
// Example inputs that all decode into a summary payload:
//
//	{"concise": "The train stops."}
//	```json
//	{"concise": "The train stops."}
//	```
//	"{\"concise\": \"The train stops.\"}"
//	{concise: "The train stops",}
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	input = stripCodeFence(input)
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = stripCodeFence(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}

	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}
