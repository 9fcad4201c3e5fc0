package handlers

import "sort"

// stripUnknownProperties implements the one piece of JSON-Schema validation
// this router performs (no other JSON-Schema checking is done before a
// call is forwarded upstream): when a tool's schema declares
// additionalProperties=false, any top-level argument key absent from
// properties is removed rather than forwarded upstream. Matching keys are
// left untouched; stripped returns exactly the removed names, sorted for a
// stable report.
func stripUnknownProperties(schema map[string]interface{}, args map[string]interface{}) (cleaned map[string]interface{}, stripped []string) {
	allowed, isBool := schema["additionalProperties"].(bool)
	if !isBool || allowed {
		return args, nil
	}

	props, _ := schema["properties"].(map[string]interface{})
	cleaned = make(map[string]interface{}, len(args))
	for k, v := range args {
		if _, ok := props[k]; ok {
			cleaned[k] = v
		} else {
			stripped = append(stripped, k)
		}
	}
	sort.Strings(stripped)
	return cleaned, stripped
}
